package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ceyewan/fuse/clog"
	"github.com/ceyewan/fuse/xerrors"
)

// loader 基于 Viper 的 Loader 实现
type loader struct {
	v    *viper.Viper
	opts *loaderOptions

	mu        sync.Mutex
	watches   map[string][]chan Event
	oldValues map[string]any
}

func newLoader(opts *loaderOptions) *loader {
	return &loader{
		v:         viper.New(),
		opts:      opts,
		watches:   make(map[string][]chan Event),
		oldValues: make(map[string]any),
	}
}

// Load 初始化并从所有来源加载配置
func (l *loader) Load(ctx context.Context) error {
	l.v.SetConfigName(l.opts.name)
	l.v.SetConfigType(l.opts.fileType)
	for _, path := range l.opts.paths {
		l.v.AddConfigPath(path)
	}

	// 环境变量优先级最高，先挂载
	l.v.SetEnvPrefix(l.opts.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if err := l.loadDotEnv(); err != nil {
		l.opts.logger.Warn("no .env file loaded", clog.Error(err))
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return xerrors.Wrapf(err, "read config file %s", l.opts.name)
		}
		l.opts.logger.Warn("no configuration file found",
			clog.String("name", l.opts.name))
	}

	if err := l.mergeEnvironmentConfig(); err != nil {
		return err
	}

	l.captureCurrentValues()

	l.v.OnConfigChange(func(e fsnotify.Event) {
		if err := l.mergeEnvironmentConfig(); err != nil {
			l.opts.logger.Error("failed to reload environment config", clog.Error(err))
		}
		l.notifyWatches()
	})
	l.v.WatchConfig()
	return nil
}

// loadDotEnv 尝试从搜索路径加载 .env 文件
func (l *loader) loadDotEnv() error {
	var loaded bool
	var lastErr error

	if err := godotenv.Load(); err == nil {
		loaded = true
	} else {
		lastErr = err
	}
	for _, path := range l.opts.paths {
		if err := godotenv.Load(filepath.Join(path, ".env")); err == nil {
			loaded = true
		} else {
			lastErr = err
		}
	}

	if !loaded {
		return lastErr
	}
	return nil
}

// mergeEnvironmentConfig 合并环境特定配置文件，如 fuse.production.yaml。
// 环境名取自 {PREFIX}_ENV 环境变量，未设置则跳过。
func (l *loader) mergeEnvironmentConfig() error {
	env := os.Getenv(l.opts.envPrefix + "_ENV")
	if env == "" {
		return nil
	}

	name := fmt.Sprintf("%s.%s", l.opts.name, env)
	l.v.SetConfigName(name)
	defer l.v.SetConfigName(l.opts.name)

	if err := l.v.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return xerrors.Wrapf(err, "merge environment config %s", name)
		}
		return nil
	}
	l.opts.logger.Info("environment configuration merged", clog.String("env", env))
	return nil
}

func (l *loader) captureCurrentValues() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key := range l.watches {
		l.oldValues[key] = l.v.Get(key)
	}
}

// Get 根据 key 获取配置值
func (l *loader) Get(key string) any {
	return l.v.Get(key)
}

// Unmarshal 将整个配置反序列化到结构体
func (l *loader) Unmarshal(v any) error {
	return l.v.Unmarshal(v)
}

// UnmarshalKey 将特定配置 key 反序列化到结构体
func (l *loader) UnmarshalKey(key string, v any) error {
	return l.v.UnmarshalKey(key, v)
}

// Watch 订阅特定配置 key 的变更
func (l *loader) Watch(ctx context.Context, key string) (<-chan Event, error) {
	l.mu.Lock()
	ch := make(chan Event, 10)
	l.watches[key] = append(l.watches[key], ch)
	l.oldValues[key] = l.v.Get(key)
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.removeWatch(key, ch)
	}()
	return ch, nil
}

func (l *loader) removeWatch(key string, ch chan Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	chans := l.watches[key]
	for i, c := range chans {
		if c == ch {
			l.watches[key] = append(chans[:i], chans[i+1:]...)
			close(ch)
			break
		}
	}
	if len(l.watches[key]) == 0 {
		delete(l.watches, key)
		delete(l.oldValues, key)
	}
}

// notifyWatches 文件变更后向所有值发生变化的监听者推送事件
func (l *loader) notifyWatches() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, channels := range l.watches {
		newValue := l.v.Get(key)
		oldValue := l.oldValues[key]
		if reflect.DeepEqual(oldValue, newValue) {
			continue
		}

		event := Event{
			Key:       key,
			Value:     newValue,
			OldValue:  oldValue,
			Timestamp: time.Now(),
		}
		l.oldValues[key] = newValue

		for _, ch := range channels {
			select {
			case ch <- event:
			default:
				l.opts.logger.Warn("watch channel full, event dropped",
					clog.String("key", key))
			}
		}
	}
}
