package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/kaiitheguy/stock-fantasy-api/internal/logger"
)

// Style 描述一种交易风格：追加在 BaseSystemPrompt 之后的提示词片段。
type Style struct {
	ID          string `mapstructure:"-" yaml:"-"`
	Name        string `mapstructure:"name" yaml:"name"`
	Description string `mapstructure:"description" yaml:"description"`
	Prompt      string `mapstructure:"prompt" yaml:"prompt"`
}

// Model 是目录中的一个可用模型条目。
type Model struct {
	ID       string
	Provider string
	Model    string
	CostTier string
}

// Agent 是 model × style 的一个组合，目录条目，创建后只读。
type Agent struct {
	ID           int    `json:"id"`
	ModelID      string `json:"model_id"`
	StyleID      string `json:"style_id"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	SystemPrompt string `json:"-"`
	CostTier     string `json:"cost_tier"`
	Description  string `json:"description"`
}

type styleFile struct {
	Styles map[string]Style `mapstructure:"styles" yaml:"styles"`
}

// Snapshot 是一次目录构建的结果。
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Agents   []Agent
}

// Registry 维护 agent 目录。风格文件可热更新；模型表来自配置，进程内不变。
type Registry struct {
	models []Model
	path   string

	mu   sync.RWMutex
	snap Snapshot
}

// New 构建目录。stylesPath 为空或文件缺失时使用内置风格；watch 为 true 时
// 监听风格文件变更并重建目录（agent 仍按 model×style 顺序保持稳定编号）。
func New(models []Model, stylesPath string, watch bool) (*Registry, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("registry requires at least one model")
	}
	r := &Registry{models: append([]Model(nil), models...), path: strings.TrimSpace(stylesPath)}
	if err := r.reload(); err != nil {
		return nil, err
	}
	if watch && r.path != "" {
		if err := r.watchStyles(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ListAgents 返回目录的拷贝，调用方可以安全并发读取。
func (r *Registry) ListAgents() []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Agent, len(r.snap.Agents))
	copy(out, r.snap.Agents)
	return out
}

// Agent 按 id 查找目录条目。
func (r *Registry) Agent(id int) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.snap.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return Agent{}, false
}

// Snapshot 返回当前目录快照。
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := r.snap
	snap.Agents = append([]Agent(nil), r.snap.Agents...)
	return snap
}

func (r *Registry) reload() error {
	styles, err := r.loadStyles()
	if err != nil {
		return err
	}
	agents := buildAgents(r.models, styles)
	r.mu.Lock()
	r.snap = Snapshot{Version: r.snap.Version + 1, LoadedAt: time.Now(), Agents: agents}
	r.mu.Unlock()
	logger.Infof("agent registry loaded: %d models x %d styles = %d agents", len(r.models), len(styles), len(agents))
	return nil
}

func (r *Registry) loadStyles() ([]Style, error) {
	if r.path == "" {
		return builtinStyles(), nil
	}
	if _, err := os.Stat(r.path); err != nil {
		logger.Warnf("styles file %s not found, using builtin styles", r.path)
		return builtinStyles(), nil
	}
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read styles file failed: %w", err)
	}
	var file styleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse styles file failed: %w", err)
	}
	if len(file.Styles) == 0 {
		return builtinStyles(), nil
	}
	// 以内置顺序为基底，文件条目覆盖同名风格、追加新风格。
	styles := builtinStyles()
	index := make(map[string]int, len(styles))
	for i, s := range styles {
		index[s.ID] = i
	}
	extraIDs := make([]string, 0, len(file.Styles))
	for id := range file.Styles {
		if _, known := index[id]; !known {
			extraIDs = append(extraIDs, id)
		}
	}
	sort.Strings(extraIDs)
	for id, s := range file.Styles {
		s.ID = id
		if i, known := index[id]; known {
			styles[i] = mergeStyle(styles[i], s)
		}
	}
	for _, id := range extraIDs {
		s := file.Styles[id]
		s.ID = id
		if strings.TrimSpace(s.Prompt) == "" {
			logger.Warnf("style %q has empty prompt, skipped", id)
			continue
		}
		styles = append(styles, s)
	}
	return styles, nil
}

func mergeStyle(base, override Style) Style {
	if strings.TrimSpace(override.Name) != "" {
		base.Name = override.Name
	}
	if strings.TrimSpace(override.Description) != "" {
		base.Description = override.Description
	}
	if strings.TrimSpace(override.Prompt) != "" {
		base.Prompt = override.Prompt
	}
	return base
}

func buildAgents(models []Model, styles []Style) []Agent {
	agents := make([]Agent, 0, len(models)*len(styles))
	id := 0
	for _, m := range models {
		for _, s := range styles {
			id++
			agents = append(agents, Agent{
				ID:           id,
				ModelID:      m.ID,
				StyleID:      s.ID,
				Provider:     m.Provider,
				Model:        m.Model,
				SystemPrompt: BaseSystemPrompt + "\n" + s.Prompt,
				CostTier:     m.CostTier,
				Description:  fmt.Sprintf("%s (%s)", s.Description, m.ID),
			})
		}
	}
	return agents
}

func (r *Registry) watchStyles() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(r.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}
	target := filepath.Clean(r.path)
	go func() {
		for {
			select {
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != target {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := r.reload(); err != nil {
					logger.Errorf("styles reload failed: %v", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnf("styles watcher error: %v", err)
			}
		}
	}()
	return nil
}
