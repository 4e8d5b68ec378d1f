package timer

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/atomic"
	"vesta/vesta"
)

// Callback receives the processing time of the firing in unix milliseconds
type Callback func(timestamp int64)

type ScheduledFuture interface {
	//Cancel stops future firings, firings already in the mailbox are skipped
	Cancel()
	IsCancelled() bool
}

// Service is the processing time service of one task.
// Callbacks never run on the timer goroutine, they are delivered to the
// task's mailbox and executed by the task goroutine.
type Service interface {
	CurrentProcessingTime() int64
	ScheduleAtFixedRate(callback Callback, initialDelay, period time.Duration) ScheduledFuture
	Shutdown()
}

// Mailbox is drained by the owning task goroutine
type Mailbox chan func()

func NewMailbox(size int) Mailbox {
	return make(Mailbox, size)
}

type fixedRate struct {
	initialDelay time.Duration
	period       time.Duration
	started      bool
}

// Next is only called by the cron goroutine
func (f *fixedRate) Next(t time.Time) time.Time {
	if !f.started {
		f.started = true
		return t.Add(f.initialDelay)
	}
	return t.Add(f.period)
}

type future struct {
	cancelled atomic.Bool
	entryID   cron.EntryID
	cron      *cron.Cron
}

func (f *future) Cancel() {
	if f.cancelled.CAS(false, true) {
		f.cron.Remove(f.entryID)
	}
}

func (f *future) IsCancelled() bool {
	return f.cancelled.Load()
}

type cronLogger struct {
	logger vesta.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Errorw(msg, append(keysAndValues, "err", err)...)
}

type service struct {
	cron     *cron.Cron
	mailbox  Mailbox
	logger   vesta.Logger
	shutdown sync.Once
}

func (s *service) CurrentProcessingTime() int64 {
	return time.Now().UnixMilli()
}

// ScheduleAtFixedRate skips a firing when the mailbox is full
func (s *service) ScheduleAtFixedRate(callback Callback, initialDelay, period time.Duration) ScheduledFuture {
	f := &future{cron: s.cron}
	job := cron.FuncJob(func() {
		timestamp := s.CurrentProcessingTime()
		select {
		case s.mailbox <- func() {
			if !f.IsCancelled() {
				callback(timestamp)
			}
		}:
		default:
			s.logger.Debugw("mailbox is full, skip timer firing.", "timestamp", timestamp)
		}
	})
	f.entryID = s.cron.Schedule(&fixedRate{initialDelay: initialDelay, period: period}, job)
	return f
}

// Shutdown waits for in flight firings to be delivered or dropped
func (s *service) Shutdown() {
	s.shutdown.Do(func() {
		<-s.cron.Stop().Done()
	})
}

func New(mailbox Mailbox, logger vesta.Logger) Service {
	c := cron.New(
		cron.WithLogger(cronLogger{logger: logger}),
		cron.WithChain(cron.Recover(cronLogger{logger: logger})),
	)
	c.Start()
	return &service{cron: c, mailbox: mailbox, logger: logger}
}
