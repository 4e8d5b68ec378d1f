package file

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
	"vesta/lib/component"
	"vesta/lib/log"
	"vesta/lib/properties"
	"vesta/vesta"
)

var (
	PathProperty          = properties.NewRequiredProperty[string]("path", "glob of the files to read, one split per file")
	MaxLineBytesProperty  = properties.NewProperty[int]("max-line-bytes", "longest line accepted", 1024*1024)
	SkipEmptyLineProperty = properties.NewProperty[bool]("skip-empty-line", "drop empty lines", true)
)

type split struct {
	number int
	path   string
}

func (s *split) SplitNumber() int {
	return s.number
}

// format reads text files line by line, it is bounded
type format struct {
	logger        vesta.Logger
	pattern       string
	maxLineBytes  int
	skipEmptyLine bool

	file    *os.File
	scanner *bufio.Scanner
	path    string
	line    int
	next    *string
}

func (f *format) PropertiesDef() vesta.PropertiesDef {
	return vesta.PropertiesDef{PathProperty, MaxLineBytesProperty, SkipEmptyLineProperty}
}

func (f *format) Open(ctx vesta.Context) error {
	f.logger = log.Ctx(ctx)
	p := ctx.Properties()
	f.pattern = p.GetString(PathProperty)
	f.maxLineBytes = p.GetInt(MaxLineBytesProperty)
	f.skipEmptyLine = p.GetBool(SkipEmptyLineProperty)
	return nil
}

func (f *format) Close() error {
	return f.CloseSplit()
}

// CreateSplits ignores minNumSplits, a file is never split
func (f *format) CreateSplits(int) ([]vesta.InputSplit, error) {
	paths, err := filepath.Glob(f.pattern)
	if err != nil {
		return nil, errors.WithMessagef(err, "bad path pattern %s", f.pattern)
	}
	sort.Strings(paths)
	splits := make([]vesta.InputSplit, 0, len(paths))
	for i, path := range paths {
		splits = append(splits, &split{number: i, path: path})
	}
	f.logger.Infow("create file splits.", "pattern", f.pattern, "files", len(paths))
	return splits, nil
}

func (f *format) OpenSplit(inputSplit vesta.InputSplit) error {
	s, ok := inputSplit.(*split)
	if !ok {
		return errors.Errorf("unknown split %T", inputSplit)
	}
	file, err := os.Open(s.path)
	if err != nil {
		return err
	}
	f.file, f.path, f.line = file, s.path, 0
	f.scanner = bufio.NewScanner(file)
	f.scanner.Buffer(make([]byte, 0, 64*1024), f.maxLineBytes)
	f.advance()
	return nil
}

func (f *format) advance() {
	f.next = nil
	for f.scanner.Scan() {
		f.line++
		text := f.scanner.Text()
		if f.skipEmptyLine && text == "" {
			continue
		}
		f.next = &text
		return
	}
}

func (f *format) ReachedEnd() bool {
	return f.next == nil
}

func (f *format) NextRecord() (*vesta.Event, error) {
	if f.next == nil {
		return nil, f.scanner.Err()
	}
	event := &vesta.Event{
		Meta:    map[string]any{"file": f.path, "line": f.line},
		Message: *f.next,
		Time:    time.Now(),
	}
	f.advance()
	return event, nil
}

func (f *format) CloseSplit() error {
	if f.file == nil {
		return nil
	}
	var err error
	if f.scanner != nil {
		err = f.scanner.Err()
	}
	if closeErr := f.file.Close(); err == nil {
		err = closeErr
	}
	f.file, f.scanner, f.next = nil, nil, nil
	return err
}

func New() vesta.InputFormat {
	return &format{}
}

func init() {
	component.RegisterNewInputFormatFunc("file", New)
}
