package runtime

import (
	_c "context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"vesta/lib/component/function/tengo"
	"vesta/lib/context"
	"vesta/lib/eventtime"
	"vesta/lib/operators"
	"vesta/lib/properties"
	"vesta/lib/transformation"
	"vesta/lib/translator"
	"vesta/vesta"

	_ "vesta/lib"
)

func load(t *testing.T, ctx _c.Context, content string) *Runtime {
	t.Helper()
	ps, err := properties.NewFromString("yaml", content)
	require.NoError(t, err)
	r, err := NewFromProperties(ctx, ps)
	require.NoError(t, err)
	return r
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	sort.Strings(lines)
	return lines
}

func runWithin(t *testing.T, r *Runtime, timeout time.Duration) error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- r.Run()
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		r.Stop()
		t.Fatalf("runtime did not finish within %s", timeout)
		return nil
	}
}

func TestRunStreaming(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.json")
	r := load(t, nil, fmt.Sprintf(`
global:
  parallelism: 2
  auto-watermark-interval: 5ms
  idle-backoff: 1ms
source:
  gen:
    type: mock
    count: 5
    interval: 1
    watermark:
      strategy: bounded
      out-of-orderness: 10ms
operator:
  upper:
    type: tengo-map
    inputs: [source.gen]
    script: |
      text := import("text")
      event.message = text.to_upper(event.message)
sink:
  out:
    type: file
    path: %s
    parallelism: 1
    inputs: [operator.upper]
`, out))
	assert.Len(t, r.tasks, 5)
	require.NoError(t, runWithin(t, r, 10*time.Second))

	lines := readLines(t, out)
	require.Len(t, lines, 10)
	for subtask := 0; subtask < 2; subtask++ {
		for seq := 1; seq <= 5; seq++ {
			assert.Contains(t, strings.Join(lines, "\n"), fmt.Sprintf(`"message":"MOCK-%d-%d"`, subtask, seq))
		}
	}
}

func TestRunBatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.log"), []byte("a b\nc\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.log"), []byte("d\n\ne f\n"), 0o644))
	out := filepath.Join(dir, "out", "words.json")
	r := load(t, nil, fmt.Sprintf(`
global:
  runtime-mode: batch
  parallelism: 2
source:
  lines:
    type: file
    path: %s
operator:
  words:
    type: split
    separator: " "
    inputs: [source.lines]
  sampled:
    type: sample
    rate: 1
    inputs: [operator.words]
sink:
  out:
    type: file
    path: %s
    parallelism: 1
    inputs: [operator.sampled]
`, filepath.Join(dir, "*.log"), out))
	require.NoError(t, runWithin(t, r, 10*time.Second))

	lines := readLines(t, out)
	require.Len(t, lines, 6)
	joined := strings.Join(lines, "\n")
	for _, word := range []string{"a", "b", "c", "d", "e", "f"} {
		assert.Contains(t, joined, fmt.Sprintf(`"message":"%s"`, word))
	}
}

func TestRunUnion(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.json")
	r := load(t, nil, fmt.Sprintf(`
global:
  idle-backoff: 1ms
source:
  first:
    type: mock
    count: 2
    interval: 1
    message: first
  second:
    type: mock
    count: 3
    interval: 1
    message: second
sink:
  out:
    type: file
    path: %s
    inputs: [source.first, source.second]
`, out))
	require.NoError(t, runWithin(t, r, 10*time.Second))
	lines := readLines(t, out)
	require.Len(t, lines, 5)
	assert.Equal(t, 2, strings.Count(strings.Join(lines, "\n"), `"message":"first-`))
}

func TestRunFailure(t *testing.T) {
	r := load(t, nil, `
global:
  idle-backoff: 1ms
source:
  gen:
    type: mock
    interval: 1
operator:
  broken:
    type: tengo-filter
    condition: event.message
    inputs: [source.gen]
sink:
  out:
    type: echo
    inputs: [operator.broken]
`)
	err := runWithin(t, r, 10*time.Second)
	assert.ErrorIs(t, err, tengo.ErrNotBool)
}

func TestStop(t *testing.T) {
	const config = `
global:
  idle-backoff: 1ms
source:
  gen:
    type: mock
    interval: 1
sink:
  out:
    type: echo
    inputs: [source.gen]
`
	t.Run("stop", func(t *testing.T) {
		r := load(t, nil, config)
		time.AfterFunc(50*time.Millisecond, r.Stop)
		assert.NoError(t, runWithin(t, r, 10*time.Second))
	})

	t.Run("cancel", func(t *testing.T) {
		ctx, cancel := _c.WithCancel(_c.Background())
		r := load(t, ctx, config)
		time.AfterFunc(50*time.Millisecond, cancel)
		assert.NoError(t, runWithin(t, r, 10*time.Second))
	})
}

// recorder is shared by every replica of a recordingOperator
type recorder struct {
	mutex     sync.Mutex
	elements  map[int][]vesta.Element
	endInputs int
}

func (r *recorder) add(subtask int, element vesta.Element) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.elements == nil {
		r.elements = map[int][]vesta.Element{}
	}
	r.elements[subtask] = append(r.elements[subtask], element)
}

type recordingOperator struct {
	operators.AbstractStreamOperator
	recorder *recorder
}

func (o *recordingOperator) ProcessElement(event *vesta.Event) error {
	o.recorder.add(o.Task().SubtaskIndex(), event)
	return nil
}

func (o *recordingOperator) ProcessWatermark(watermark vesta.Watermark) error {
	o.recorder.add(o.Task().SubtaskIndex(), watermark)
	return nil
}

func (o *recordingOperator) ProcessWatermarkStatus(status vesta.WatermarkStatus) error {
	o.recorder.add(o.Task().SubtaskIndex(), status)
	return nil
}

func (o *recordingOperator) EndInput() error {
	o.recorder.mutex.Lock()
	defer o.recorder.mutex.Unlock()
	o.recorder.endInputs++
	return nil
}

func (o *recordingOperator) Replicate() operators.StreamOperator {
	return &recordingOperator{recorder: o.recorder}
}

// sliceSource emits one event per poll with a timestamp of index*10ms
type sliceSource struct {
	count int
}

func (s *sliceSource) Open(vesta.Context) error           { return nil }
func (s *sliceSource) Close() error                       { return nil }
func (s *sliceSource) PropertiesDef() vesta.PropertiesDef { return vesta.PropertiesDef{} }
func (s *sliceSource) Boundedness() vesta.Boundedness     { return vesta.Bounded }
func (s *sliceSource) CreateReader(vesta.ReaderContext) (vesta.SourceReader, error) {
	return &sliceReader{count: s.count}, nil
}

type sliceReader struct {
	count, next int
}

func (r *sliceReader) PollNext(output vesta.ReaderOutput) (vesta.InputStatus, error) {
	if r.next >= r.count {
		return vesta.EndOfInputStatus, nil
	}
	output.Collect(&vesta.Event{Message: r.next, Time: time.UnixMilli(int64(r.next) * 10)})
	r.next++
	return vesta.MoreAvailable, nil
}

func (r *sliceReader) Close() error { return nil }

func TestEventTime(t *testing.T) {
	source, err := transformation.NewSource("slice", &sliceSource{count: 20}, eventtime.ForMonotonousTimestamps())
	require.NoError(t, err)
	rec := &recorder{}
	sink, err := transformation.NewSink("record", source, &recordingOperator{recorder: rec}, transformation.WithParallelism(2))
	require.NoError(t, err)
	config := vesta.DefaultExecutionConfig()
	config.AutoWatermarkInterval = time.Millisecond
	g, err := translator.NewGenerator(config, sink).Generate()
	require.NoError(t, err)

	options := DefaultOptions()
	options.IdleBackoff = time.Millisecond
	r, err := New(context.New(nil, nil), g, options)
	require.NoError(t, err)
	require.NoError(t, runWithin(t, r, 10*time.Second))

	assert.Equal(t, 2, rec.endInputs)
	require.Len(t, rec.elements, 2)
	events := 0
	for subtask, elements := range rec.elements {
		last := vesta.MinWatermark
		for _, element := range elements {
			switch e := element.(type) {
			case *vesta.Event:
				events++
				assert.Less(t, last, vesta.Watermark(e.Time.UnixMilli()), "subtask %d: event behind the watermark", subtask)
			case vesta.Watermark:
				assert.Greater(t, e, last, "subtask %d: watermark went back", subtask)
				last = e
			case vesta.WatermarkStatus:
				t.Errorf("subtask %d: unexpected status %s", subtask, e)
			}
		}
		assert.Equal(t, vesta.MaxWatermark, last, "subtask %d closes event time", subtask)
	}
	assert.Equal(t, 20, events)
}
