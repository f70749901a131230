package cache

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"dental-screen/internal/domain/entity"
	"dental-screen/internal/domain/port"
)

// cleanupThreshold при превышении числа записей просроченные удаляются
const cleanupThreshold = 100

type entry struct {
	result *entity.AnalysisResult
	stored time.Time
}

// Stats состояние кэша для /cache/stats
type Stats struct {
	Enabled        bool    `json:"enabled"`
	Entries        int     `json:"entries"`
	TTLSeconds     int     `json:"ttl_seconds"`
	OldestEntryAge float64 `json:"oldest_entry_age"`
	NewestEntryAge float64 `json:"newest_entry_age"`
	Hits           int64   `json:"hits"`
	Misses         int64   `json:"misses"`
}

// ResultCache кэш результатов анализа одинаковых снимков с TTL.
// Результаты из кэша общие для всех запросов и не должны изменяться.
type ResultCache struct {
	enabled bool
	ttl     time.Duration
	now     func() time.Time
	logger  zerolog.Logger

	mu      sync.Mutex
	entries map[string]entry
	hits    int64
	misses  int64

	group singleflight.Group
}

// NewResultCache создаёт кэш. Выключенный кэш всегда вызывает вычисление.
func NewResultCache(enabled bool, ttl time.Duration, logger zerolog.Logger) *ResultCache {
	logger.Info().Bool("enabled", enabled).Dur("ttl", ttl).Msg("result cache initialized")
	return &ResultCache{
		enabled: enabled,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
		entries: make(map[string]entry),
	}
}

// Do возвращает результат из кэша или вычисляет его. Второе значение true,
// если результат взят из кэша. Ошибки не кэшируются.
func (c *ResultCache) Do(key string, fn func() (*entity.AnalysisResult, error)) (*entity.AnalysisResult, bool, error) {
	if !c.enabled {
		res, err := fn()
		return res, false, err
	}

	if res, ok := c.get(key); ok {
		return res, true, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		// Пока ждали группу, результат мог появиться.
		if res, ok := c.get(key); ok {
			return flight{res, true}, nil
		}
		res, err := fn()
		if err != nil {
			return nil, err
		}
		c.set(key, res)
		return flight{res, false}, nil
	})
	if err != nil {
		return nil, false, err
	}
	f := v.(flight)
	return f.result, f.cached || shared, nil
}

type flight struct {
	result *entity.AnalysisResult
	cached bool
}

func (c *ResultCache) get(key string) (*entity.AnalysisResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && c.now().Sub(e.stored) < c.ttl {
		c.hits++
		c.logger.Debug().Str("hash", shortHash(key)).Msg("cache hit")
		return e.result, true
	}
	if ok {
		delete(c.entries, key)
	}
	c.misses++
	return nil, false
}

func (c *ResultCache) set(key string, res *entity.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{result: res, stored: c.now()}
	if len(c.entries) > cleanupThreshold {
		c.cleanupLocked()
	}
}

func (c *ResultCache) cleanupLocked() {
	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if now.Sub(e.stored) > c.ttl {
			delete(c.entries, k)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug().Int("removed", removed).Int("entries", len(c.entries)).Msg("cache cleanup")
	}
}

func shortHash(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}

// Clear удаляет все записи
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

func (c *ResultCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Stats{
		Enabled:    c.enabled,
		Entries:    len(c.entries),
		TTLSeconds: int(c.ttl / time.Second),
		Hits:       c.hits,
		Misses:     c.misses,
	}

	now := c.now()
	first := true
	for _, e := range c.entries {
		age := now.Sub(e.stored).Seconds()
		if first || age > st.OldestEntryAge {
			st.OldestEntryAge = age
		}
		if first || age < st.NewestEntryAge {
			st.NewestEntryAge = age
		}
		first = false
	}
	return st
}

var _ port.ResultCache = (*ResultCache)(nil)
