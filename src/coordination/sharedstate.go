package coordination

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/opspulse/background-agents/src/data"
	"github.com/opspulse/background-agents/src/types"
)

// SharedState is the single gateway workers and the supervisor use for
// cross-cutting persistence: system events, business metrics, the
// aggregated health snapshot and a small key-value state cache.
type SharedState struct {
	db  *gorm.DB
	rdb *redis.Client
	log *zap.SugaredLogger

	mu    sync.RWMutex
	state map[string]string
}

func NewSharedState(db *gorm.DB, rdb *redis.Client, log *zap.SugaredLogger) *SharedState {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &SharedState{
		db:    db,
		rdb:   rdb,
		log:   log,
		state: make(map[string]string),
	}
}

// ScoreOf computes the overall health score from live worker counts.
// An empty fleet is healthy by definition.
func ScoreOf(active, total int) float64 {
	if total <= 0 {
		return 100
	}
	return math.Round(100*float64(active)/float64(total)*10) / 10
}

// GetSystemHealth aggregates the fleet into a single snapshot. Liveness
// comes from heartbeat recency, not the status column, so a wedged fleet
// scores low even when nothing demoted the rows. The redis copy is
// refreshed best-effort; only database faults fail the call.
func (s *SharedState) GetSystemHealth(ctx context.Context) (types.Health, error) {
	var agents []types.Agent
	if err := s.db.WithContext(ctx).Find(&agents).Error; err != nil {
		return types.Health{}, fmt.Errorf("load agents: %w", err)
	}

	now := time.Now().UTC()
	active := 0
	for _, ag := range agents {
		if ag.ActiveAt(now) {
			active++
		}
	}

	h := types.Health{
		OverallScore: ScoreOf(active, len(agents)),
		ActiveAgents: active,
		TotalAgents:  len(agents),
	}
	if s.rdb != nil {
		if cerr := data.CacheHealthSnapshot(ctx, s.rdb, h); cerr != nil {
			s.log.Debugw("health snapshot cache write failed", "err", cerr)
		}
	}
	return h, nil
}

// LogSystemEvent appends a structured event to the durable log and
// mirrors it onto the redis stream when a cache is attached.
func (s *SharedState) LogSystemEvent(ctx context.Context, eventType string, payload map[string]interface{}, severity string) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event payload: %w", err)
	}
	row := types.SystemEvent{
		EventType: eventType,
		Severity:  severity,
		Payload:   string(raw),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("log system event %s: %w", eventType, err)
	}

	if s.rdb != nil {
		mirror := map[string]interface{}{
			"event_type": eventType,
			"severity":   severity,
			"payload":    string(raw),
		}
		if perr := data.PublishEvent(ctx, s.rdb, mirror); perr != nil {
			s.log.Debugw("event stream publish failed", "event", eventType, "err", perr)
		}
	}
	return nil
}

// LogBusinessMetric records a named measurement under a metric type.
func (s *SharedState) LogBusinessMetric(ctx context.Context, metricType, name string, value float64, metadata map[string]interface{}) error {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode metric metadata: %w", err)
	}
	row := types.PerformanceMetric{
		MetricType: metricType,
		MetricName: name,
		Value:      value,
		Metadata:   string(raw),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("log metric %s/%s: %w", metricType, name, err)
	}
	return nil
}

// LoadState warms the in-process cache from the system_state table.
func (s *SharedState) LoadState(ctx context.Context) error {
	var rows []types.SystemState
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return fmt.Errorf("load system state: %w", err)
	}
	s.mu.Lock()
	for _, row := range rows {
		s.state[row.Key] = row.Value
	}
	s.mu.Unlock()
	return nil
}

// GetState reads a key from the in-process cache.
func (s *SharedState) GetState(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.state[key]
	return v, ok
}

// SetState writes a key durably and updates the cache on success.
func (s *SharedState) SetState(ctx context.Context, key, value string) error {
	row := types.SystemState{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("set state %s: %w", key, err)
	}
	s.mu.Lock()
	s.state[key] = value
	s.mu.Unlock()
	return nil
}

// Close releases the cache connection. The database handle is owned by
// the caller and closed elsewhere.
func (s *SharedState) Close() error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
