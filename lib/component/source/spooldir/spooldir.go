package spooldir

import (
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hpcloud/tail"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/tomb.v2"
	"vesta/lib/component"
	"vesta/lib/log"
	"vesta/lib/properties"
	"vesta/vesta"
)

var (
	ScanProperty       = properties.NewRequiredProperty[string]("scan", "watch this directory, files must be moved in complete")
	BackupProperty     = properties.NewProperty[string]("backup", "if backup is empty, remove file after reading", "")
	PatternProperty    = properties.NewProperty[string]("pattern", "regex pattern of the file names", ".*")
	ConcurrentProperty = properties.NewProperty[int]("concurrent", "files read at the same time", 1)
	BufferProperty     = properties.NewProperty[int]("buffer", "lines buffered between the readers and the task", 1024)
)

// source reads every file that appears in the scan directory, it never ends
type source struct {
	ctx        vesta.Context
	logger     vesta.Logger
	scanDir    string
	backupDir  string
	pattern    *regexp.Regexp
	concurrent int
	buffer     int
}

func (s *source) PropertiesDef() vesta.PropertiesDef {
	return vesta.PropertiesDef{ScanProperty, BackupProperty, PatternProperty, ConcurrentProperty, BufferProperty}
}

func (s *source) Open(ctx vesta.Context) (err error) {
	s.ctx = ctx
	s.logger = log.Ctx(ctx)
	p := ctx.Properties()
	s.scanDir = p.GetString(ScanProperty)
	s.backupDir = p.GetString(BackupProperty)
	s.concurrent = p.GetInt(ConcurrentProperty)
	s.buffer = p.GetInt(BufferProperty)
	s.pattern, err = regexp.Compile(p.GetString(PatternProperty))
	return err
}

func (s *source) Close() error {
	return nil
}

func (s *source) Boundedness() vesta.Boundedness {
	return vesta.ContinuousUnbounded
}

// CreateReader starts watching, files are split among subtasks by name hash
func (s *source) CreateReader(readerCtx vesta.ReaderContext) (vesta.SourceReader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithMessage(err, "can't create watcher")
	}
	if err = watcher.Add(s.scanDir); err != nil {
		_ = watcher.Close()
		return nil, errors.WithMessagef(err, "can't watch %s", s.scanDir)
	}
	r := &reader{
		source:   s,
		ctx:      readerCtx,
		watcher:  watcher,
		lines:    make(chan *vesta.Event, s.buffer),
		logger:   s.logger,
		parallel: readerCtx.Parallelism,
	}
	r.life, _ = tomb.WithContext(s.ctx.Ctx())
	r.pool, err = ants.NewPoolWithFunc(s.concurrent,
		func(arg interface{}) {
			r.read(cast.ToString(arg))
		},
		ants.WithLogger(&log.StdLogger{Logger: s.logger}),
		ants.WithPanicHandler(func(reason interface{}) {
			if reason != nil {
				s.logger.Errorw("read file panic.", "reason", reason)
			}
		}))
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}
	r.life.Go(r.watch)
	return r, nil
}

type reader struct {
	source   *source
	ctx      vesta.ReaderContext
	watcher  *fsnotify.Watcher
	pool     *ants.PoolWithFunc
	lines    chan *vesta.Event
	life     *tomb.Tomb
	logger   vesta.Logger
	parallel int
}

func (r *reader) owns(filePath string) bool {
	if r.parallel <= 1 {
		return true
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(path.Base(filePath)))
	return int(h.Sum32()%uint32(r.parallel)) == r.ctx.SubtaskIndex
}

func (r *reader) submit(filePath string) {
	if !r.source.pattern.MatchString(path.Base(filePath)) || !r.owns(filePath) {
		return
	}
	if err := r.pool.Invoke(filePath); err != nil {
		r.logger.Errorw(fmt.Sprintf("submit %s read task error, skip file.", filePath), "err", err)
	}
}

// watch picks up the files already there, then every created one
func (r *reader) watch() error {
	existing, err := filepath.Glob(filepath.Join(r.source.scanDir, "*"))
	if err != nil {
		return err
	}
	sort.Strings(existing)
	for _, filePath := range existing {
		r.submit(filePath)
	}
	for {
		select {
		case <-r.life.Dying():
			return nil
		case e, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if e.Op&fsnotify.Create == fsnotify.Create {
				r.logger.Infof("scan to new file:%s.", e.Name)
				r.submit(e.Name)
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warnw("watch file system failed.", "err", err)
		}
	}
}

func (r *reader) read(filePath string) {
	tailFile, err := tail.TailFile(filePath, tail.Config{
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekStart},
		MustExist: true,
		Logger:    &log.StdLogger{Logger: r.logger},
	})
	if err != nil {
		r.logger.Errorw("tail error, skip this file.", "path", filePath, "err", err)
		return
	}
	defer tailFile.Cleanup()
	for {
		select {
		case line, ok := <-tailFile.Lines:
			if !ok {
				r.afterRead(filePath)
				return
			}
			event := &vesta.Event{
				Meta:    map[string]interface{}{"file": filePath, "time": line.Time},
				Message: line.Text,
				Time:    time.Now(),
			}
			select {
			case r.lines <- event:
			case <-r.life.Dying():
				_ = tailFile.Stop()
				return
			}
		case <-r.life.Dying():
			_ = tailFile.Stop()
			return
		}
	}
}

func (r *reader) afterRead(filePath string) {
	if r.source.backupDir == "" {
		if err := os.Remove(filePath); err != nil {
			r.logger.Errorw("can't remove.", "path", filePath, "err", err)
		}
		return
	}
	backupPath := path.Join(r.source.backupDir, path.Base(filePath)+time.Now().Format(".20060102150405"))
	if err := os.Rename(filePath, backupPath); err != nil {
		r.logger.Errorw("can't rename", "path", filePath, "err", err)
		return
	}
	r.logger.Debugf("after read %s.", filePath)
}

// PollNext hands out at most one buffered line
func (r *reader) PollNext(output vesta.ReaderOutput) (vesta.InputStatus, error) {
	select {
	case event := <-r.lines:
		output.Collect(event)
		return vesta.MoreAvailable, nil
	default:
		return vesta.NothingAvailable, nil
	}
}

func (r *reader) Close() error {
	r.life.Kill(nil)
	err := r.watcher.Close()
	r.pool.Release()
	if waitErr := r.life.Wait(); waitErr != nil && err == nil {
		err = waitErr
	}
	return err
}

func New() vesta.Source {
	return &source{}
}

func init() {
	component.RegisterNewSourceFunc("spooldir", New)
}
