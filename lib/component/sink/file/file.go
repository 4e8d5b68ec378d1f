package file

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"vesta/lib/component"
	"vesta/lib/log"
	"vesta/lib/properties"
	"vesta/vesta"
)

var (
	PathProperty   = properties.NewRequiredProperty[string]("path", "file the events are written to as json lines, subtasks beyond the first write to path.<index>")
	AppendProperty = properties.NewProperty("append", "append to an existing file instead of truncating it", false)
)

type format struct {
	logger  vesta.Logger
	path    string
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	written uint64
}

// subtaskPath keeps path for the first subtask so a parallelism of one writes exactly path
func subtaskPath(path string, ctx vesta.Context) string {
	if runtime, ok := ctx.(vesta.RuntimeContext); ok && runtime.SubtaskIndex() > 0 {
		return fmt.Sprintf("%s.%d", path, runtime.SubtaskIndex())
	}
	return path
}

func (f *format) Open(ctx vesta.Context) error {
	f.logger = log.Ctx(ctx)
	f.path = subtaskPath(ctx.Properties().GetString(PathProperty), ctx)
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return errors.WithMessagef(err, "create dir of %s", f.path)
	}
	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if ctx.Properties().GetBool(AppendProperty) {
		flag = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	file, err := os.OpenFile(f.path, flag, 0o644)
	if err != nil {
		return errors.WithMessagef(err, "open %s", f.path)
	}
	f.file = file
	f.writer = bufio.NewWriter(file)
	f.encoder = json.NewEncoder(f.writer)
	f.logger.Infow("open file output.", "path", f.path)
	return nil
}

func (f *format) WriteRecord(event *vesta.Event) error {
	if err := f.encoder.Encode(event); err != nil {
		return errors.WithMessage(err, "encode event")
	}
	f.written++
	return nil
}

func (f *format) Close() error {
	if f.file == nil {
		return nil
	}
	defer func() {
		f.file = nil
	}()
	if err := f.writer.Flush(); err != nil {
		_ = f.file.Close()
		return errors.WithMessagef(err, "flush %s", f.path)
	}
	f.logger.Infow("close file output.", "path", f.path, "written", f.written)
	return f.file.Close()
}

func (f *format) PropertiesDef() vesta.PropertiesDef {
	return vesta.PropertiesDef{PathProperty, AppendProperty}
}

func New() vesta.OutputFormat {
	return &format{}
}

func init() {
	component.RegisterNewOutputFormatFunc("file", New)
}
