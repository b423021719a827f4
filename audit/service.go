package audit

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/kasuganosora/rpgscript/game/script"
	"github.com/kasuganosora/rpgscript/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FaultEntry holds one script fault to be recorded.
type FaultEntry struct {
	Script  string
	Section string
	Index   int
	Reason  string
	Fields  map[string]interface{}
}

// Service records script faults asynchronously in batches.
type Service struct {
	db     *gorm.DB
	ch     chan *model.ScriptFault
	stopCh chan struct{}
	wg     sync.WaitGroup
	logger *zap.Logger
}

// New creates a new audit Service and starts its background worker.
func New(db *gorm.DB, logger *zap.Logger) *Service {
	svc := &Service{
		db:     db,
		ch:     make(chan *model.ScriptFault, 1024),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Log enqueues a fault for async DB write.
func (svc *Service) Log(entry FaultEntry) {
	fieldsJSON, _ := json.Marshal(entry.Fields)
	record := &model.ScriptFault{
		Script:  entry.Script,
		Section: entry.Section,
		Index:   entry.Index,
		Reason:  entry.Reason,
		Fields:  datatypes.JSON(fieldsJSON),
	}
	select {
	case svc.ch <- record:
	default:
		svc.logger.Warn("audit channel full, dropping fault",
			zap.String("script", entry.Script))
	}
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (svc *Service) Stop(_ context.Context) {
	select {
	case <-svc.stopCh:
	default:
		close(svc.stopCh)
	}
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	batch := make([]*model.ScriptFault, 0, 100)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("audit batch write failed", zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-svc.ch:
			batch = append(batch, entry)
			if len(batch) >= 100 {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			// Drain remaining entries.
			for {
				select {
				case entry := <-svc.ch:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}

// ---- zap hook ----

// Core returns a zapcore.Core that forwards script error logs to svc. Tee it
// with the logging core so every script fault is both logged and recorded.
func (svc *Service) Core() zapcore.Core {
	return &faultCore{svc: svc}
}

type faultCore struct {
	svc    *Service
	fields []zapcore.Field
}

func (c *faultCore) Enabled(l zapcore.Level) bool { return l >= zapcore.WarnLevel }

func (c *faultCore) With(fields []zapcore.Field) zapcore.Core {
	return &faultCore{svc: c.svc, fields: append(c.fields[:len(c.fields):len(c.fields)], fields...)}
}

func (c *faultCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) && strings.HasPrefix(ent.Message, script.ErrorLogPrefix) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *faultCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	m := enc.Fields
	entry := FaultEntry{Reason: strings.TrimPrefix(ent.Message, script.ErrorLogPrefix)}
	if v, ok := m["script"].(string); ok {
		entry.Script = v
		delete(m, "script")
	}
	if v, ok := m["section"].(string); ok {
		entry.Section = v
		delete(m, "section")
	}
	if v, ok := m["index"].(int64); ok {
		entry.Index = int(v)
		delete(m, "index")
	}
	if len(m) > 0 {
		entry.Fields = m
	}
	c.svc.Log(entry)
	return nil
}

func (c *faultCore) Sync() error { return nil }
