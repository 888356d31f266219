package dashboard

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/mschirtzinger/logseq-tasks/internal/logseq"
	"github.com/mschirtzinger/logseq-tasks/internal/ui"
)

// Snapshot is the result of one refresh.
type Snapshot struct {
	Graph     string        `json:"graph"`
	Preset    string        `json:"preset,omitempty"`
	Shape     string        `json:"shape"`
	Total     int           `json:"total"`
	Truncated bool          `json:"truncated"`
	Tasks     []ui.TaskView `json:"tasks"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ErrorData describes a failed refresh.
type ErrorData struct {
	Message string `json:"message"`

	// Kind is "user", "fatal", "defect" or "transient".
	Kind string `json:"kind"`
}

// NewSnapshot flattens a query result.
func NewSnapshot(graph, preset string, res *logseq.QueryResult, now time.Time) *Snapshot {
	snap := &Snapshot{
		Graph:     graph,
		Preset:    preset,
		Tasks:     ui.TaskViews(graph, res),
		UpdatedAt: now,
	}
	if res != nil {
		snap.Shape = res.Shape.String()
		snap.Total = res.Total
		snap.Truncated = res.Truncated
	}
	return snap
}

// Publish stores snap as the latest state and broadcasts it.
func (s *Server) Publish(snap *Snapshot) {
	s.snapshotMu.Lock()
	s.snapshot = snap
	s.lastError = nil
	s.snapshotMu.Unlock()

	s.logger.Debug("publishing snapshot", zap.Int("tasks", len(snap.Tasks)))
	if msg, ok := newMessage(MessageTypeTasks, snap, snap.UpdatedAt, s.logger); ok {
		s.send(msg)
	}
}

// PublishError broadcasts a failed refresh. The last good snapshot stays
// available on /api/tasks.
func (s *Server) PublishError(err error) {
	data := &ErrorData{Message: err.Error(), Kind: classify(err)}

	s.snapshotMu.Lock()
	s.lastError = data
	s.snapshotMu.Unlock()

	if msg, ok := newMessage(MessageTypeError, data, time.Now(), s.logger); ok {
		s.send(msg)
	}
}

// currentMessage is what a newly connected client receives first.
func (s *Server) currentMessage() (Message, bool) {
	s.snapshotMu.RLock()
	snap, lastErr := s.snapshot, s.lastError
	s.snapshotMu.RUnlock()

	switch {
	case snap != nil:
		return newMessage(MessageTypeTasks, snap, snap.UpdatedAt, s.logger)
	case lastErr != nil:
		return newMessage(MessageTypeError, lastErr, time.Now(), s.logger)
	default:
		return Message{}, false
	}
}

func newMessage(typ MessageType, v any, ts time.Time, logger *zap.Logger) (Message, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("failed to marshal message data", zap.String("type", string(typ)), zap.Error(err))
		return Message{}, false
	}
	return Message{Type: typ, Timestamp: ts, Data: data}, true
}

func classify(err error) string {
	switch {
	case logseq.IsUserActionRequired(err):
		return "user"
	case logseq.IsFatal(err):
		return "fatal"
	case logseq.IsDefect(err):
		return "defect"
	default:
		return "transient"
	}
}
