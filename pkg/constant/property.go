package constant

import (
	"fmt"
	"time"

	"vesta/lib/eventtime"
	"vesta/lib/properties"
	"vesta/vesta"
)

var (
	ErrUnsupportedMode = fmt.Errorf("unsupported runtime mode")
)

var (
	//runtime property

	RuntimeModeProperty = properties.NewValidatedProperty[string]("runtime-mode", "streaming or batch.", "streaming",
		func(s string) error {
			_, err := vesta.ParseRuntimeMode(s)
			return err
		})
	RuntimeLogLevelProperty    = properties.NewProperty[string]("log-level", "debug, info, warn or error.", "info")
	RuntimeParallelismProperty = properties.NewValidatedProperty[int]("parallelism", "default parallelism of every node.", 1,
		func(p int) error {
			if p < 1 {
				return fmt.Errorf("parallelism must be at least 1, got %d", p)
			}
			return nil
		})
	RuntimeMaxParallelismProperty    = properties.NewProperty[int]("max-parallelism", "default max parallelism, -1 is unset.", vesta.ParallelismDefault)
	RuntimeWatermarkIntervalProperty = properties.NewValidatedProperty[time.Duration]("auto-watermark-interval", "periodic watermark emit interval.", 200*time.Millisecond,
		func(d time.Duration) error {
			if d <= 0 {
				return fmt.Errorf("interval must be positive, got %s", d)
			}
			return nil
		})
	RuntimeIdleBackoffProperty   = properties.NewProperty[time.Duration]("idle-backoff", "source wait time when nothing is available.", 10*time.Millisecond)
	RuntimeChannelBufferProperty = properties.NewValidatedProperty[int]("channel-buffer", "elements buffered between two subtasks.", 1024,
		func(size int) error {
			if size < 0 {
				return fmt.Errorf("buffer can't be negative, got %d", size)
			}
			return nil
		})
	RuntimeMailboxSizeProperty = properties.NewProperty[int]("mailbox-size", "pending timer callbacks per subtask, further firings are dropped.", 16)

	//component property

	TypeProperty             = properties.NewRequiredProperty[string]("type", "component type")
	InputsProperty           = properties.NewProperty[[]string]("inputs", "names of the upstream components", []string{})
	ParallelismProperty      = properties.NewProperty[int]("parallelism", "node parallelism, -1 uses the global default", vesta.ParallelismDefault)
	MaxParallelismProperty   = properties.NewProperty[int]("max-parallelism", "node max parallelism, -1 is unset", vesta.ParallelismDefault)
	ChainingProperty         = properties.NewProperty[string]("chaining", "always, never, head or head-with-sources, empty keeps the component default", "")
	SlotSharingGroupProperty = properties.NewProperty[string]("slot-sharing-group", "slot sharing group, empty uses the default", "")
	CoLocationGroupProperty  = properties.NewProperty[string]("co-location-group", "co-location group key", "")

	//watermark property, read from the "watermark" section of a source

	WatermarkStrategyProperty = properties.NewProperty[string]("strategy", "bounded, monotonous or none", "none")
	OutOfOrdernessProperty    = properties.NewValidatedProperty[time.Duration]("out-of-orderness", "bounded strategy max out of orderness", time.Duration(0),
		func(d time.Duration) error {
			if d < 0 {
				return fmt.Errorf("out of orderness can't be negative, got %s", d)
			}
			return nil
		})
	IdleTimeoutProperty = properties.NewValidatedProperty[string]("idle-timeout", "mark the source idle after this long without events, 0 disables, too large values clamp", "0",
		func(s string) error {
			d, err := eventtime.ParseDuration(s)
			if err != nil {
				return err
			}
			if d < 0 {
				return fmt.Errorf("idle timeout can't be negative, got %s", d)
			}
			return nil
		})
)

// RuntimePropertiesDef is the "global" section
var RuntimePropertiesDef = vesta.PropertiesDef{
	RuntimeModeProperty,
	RuntimeLogLevelProperty,
	RuntimeParallelismProperty,
	RuntimeMaxParallelismProperty,
	RuntimeWatermarkIntervalProperty,
	RuntimeIdleBackoffProperty,
	RuntimeChannelBufferProperty,
	RuntimeMailboxSizeProperty,
}

// NodePropertiesDef is shared by every source, operator and sink section
var NodePropertiesDef = vesta.PropertiesDef{
	TypeProperty,
	InputsProperty,
	ParallelismProperty,
	MaxParallelismProperty,
	ChainingProperty,
	SlotSharingGroupProperty,
	CoLocationGroupProperty,
}

var WatermarkPropertiesDef = vesta.PropertiesDef{
	WatermarkStrategyProperty,
	OutOfOrdernessProperty,
	IdleTimeoutProperty,
}
