package template

import (
	"errors"
	"fmt"

	"github.com/rubiojr/tplc/value"
)

// Include renders file from inside a running template. vars, when it
// holds entries, is assigned first; otherwise the variables of the
// enclosing render are reused. A non-nil cacheKey serves repeated
// includes from the cache without compiling again. A missing template
// yields inline replacement text instead of an error.
func (e *Engine) Include(file string, vars any, cacheKey any) (string, error) {
	src, err := e.resolver.Load(file)
	if errors.Is(err, ErrTemplateNotFound) {
		e.log.Warn("include not found", "template", file)
		return fmt.Sprintf("Template: %s not found.", file), nil
	}
	if err != nil {
		return "", err
	}

	if err := e.assignIncludeVars(vars); err != nil {
		return "", err
	}

	key, cached := "", false
	if cacheKey != nil && e.opts.Cache != nil {
		if key, err = value.ToString(cacheKey); err != nil {
			return "", fmt.Errorf("include %s: cache key: %w", file, err)
		}
		content, ok, err := e.opts.Cache.Get(key)
		if err != nil {
			e.log.Warn("include cache read failed", "key", key, "error", err)
		}
		if ok {
			e.log.Debug("include cache hit", "template", file, "key", key)
			e.clearVars()
			return content, nil
		}
		e.log.Debug("include cache miss", "template", file, "key", key)
		cached = true
	}

	content, err := e.run(src)
	if err != nil {
		return "", err
	}
	if cached {
		if err := e.opts.Cache.Set(key, content); err != nil {
			e.log.Warn("include cache write failed", "key", key, "error", err)
		}
	}
	return content, nil
}

func (e *Engine) assignIncludeVars(vars any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if count, _ := value.Len(vars); !value.Iterable(vars) || count == 0 {
		e.vars = copyVars(e.last)
		return nil
	}
	return value.Iterate(vars, func(k, v any) (bool, error) {
		name, err := value.ToString(k)
		if err != nil {
			return false, fmt.Errorf("include: variable name: %w", err)
		}
		e.vars[name] = value.Normalize(v)
		return true, nil
	})
}

// clearVars drops the variables staged for an include served from cache,
// so they do not leak into the next render.
func (e *Engine) clearVars() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vars = make(map[string]any)
}

func copyVars(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
