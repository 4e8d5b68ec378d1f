package properties

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"vesta/vesta"
)

var (
	ErrPropertyNoSet = fmt.Errorf("property is requied,but not set")
	ErrPropertyIsNil = fmt.Errorf("property and proerty default is nil")
)

const globalKey = "global"

type validator interface {
	Validate(raw interface{}) error
}

type properties struct {
	*viper.Viper
	runtime *viper.Viper
	mutex   sync.Mutex
	subs    map[string]*properties
}

// Sub returns nil when key is not a section. The same section is returned for the
// same key, so defaults applied by InitAndRender stay visible to later readers.
func (p *properties) Sub(key string) vesta.Properties {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if sub, ok := p.subs[key]; ok {
		return sub
	}
	v := p.Viper.Sub(key)
	if v == nil {
		return nil
	}
	sub := &properties{Viper: v, runtime: p.runtime}
	if p.subs == nil {
		p.subs = map[string]*properties{}
	}
	p.subs[key] = sub
	return sub
}

func (p *properties) PrefixKeys(prefix string) []string {
	all := p.Viper.GetStringMap(prefix)
	keys := make([]string, 0)
	for key := range all {
		keys = append(keys, key)
	}
	return keys
}

func (p *properties) Global() vesta.Properties {
	return &properties{Viper: p.runtime, runtime: p.runtime}
}

func (p *properties) Get(property vesta.Property) interface{} {
	return p.Viper.Get(property.Name())
}

func (p *properties) GetStringSlice(property vesta.Property) []string {
	return p.Viper.GetStringSlice(property.Name())
}

func (p *properties) GetString(property vesta.Property) string {
	return p.Viper.GetString(property.Name())
}

func (p *properties) GetBool(property vesta.Property) bool {
	return p.Viper.GetBool(property.Name())
}

func (p *properties) GetInt(property vesta.Property) int {
	return p.Viper.GetInt(property.Name())
}

func (p *properties) GetUint64(property vesta.Property) uint64 {
	return p.Viper.GetUint64(property.Name())
}

func (p *properties) GetDuration(property vesta.Property) time.Duration {
	return p.Viper.GetDuration(property.Name())
}

// InitAndRender checks required properties, applies defaults and renders the effective values
func InitAndRender(p vesta.Properties, def vesta.PropertiesDef) (string, error) {
	switch _p := p.(type) {
	case *properties:
		buffer := &bytes.Buffer{}
		tWriter := tablewriter.NewWriter(buffer)
		tWriter.SetHeader([]string{"name", "type", "value"})
		tWriter.SetAutoFormatHeaders(false)
		tWriter.SetAutoWrapText(false)

		for _, _property := range def {
			if _property.Required() {
				if !_p.Viper.IsSet(_property.Name()) {
					return "", errors.WithMessage(ErrPropertyNoSet, _property.Name())
				}
			} else {
				if _property.Default() == nil && !_p.Viper.IsSet(_property.Name()) {
					return "", errors.WithMessage(ErrPropertyIsNil, _property.Name())
				} else {
					_p.Viper.SetDefault(_property.Name(), _property.Default())
				}
			}
			if v, ok := _property.(validator); ok {
				if err := v.Validate(_p.Viper.Get(_property.Name())); err != nil {
					return "", err
				}
			}
			tWriter.Append([]string{
				_property.Name(),
				_property.Type(),
				fmt.Sprintf("%+v", _p.Viper.Get(_property.Name())),
			})
		}
		tWriter.Render()
		return buffer.String(), nil
	default:
		return "", nil
	}
}

func RenderDef(p vesta.PropertiesDef) string {
	buffer := &bytes.Buffer{}
	tWriter := tablewriter.NewWriter(buffer)
	tWriter.SetHeader([]string{"name", "description", "required", "type", "default"})
	tWriter.SetAutoFormatHeaders(false)
	tWriter.SetAutoWrapText(false)
	for _, p := range p {
		tWriter.Append([]string{
			p.Name(),
			p.Description(),
			strconv.FormatBool(p.Required()),
			p.Type(),
			fmt.Sprintf("%+v", p.Default()),
		})
	}
	tWriter.Render()
	return buffer.String()
}

func wrap(v *viper.Viper) vesta.Properties {
	runtime := v.Sub(globalKey)
	if runtime == nil {
		runtime = viper.New()
	}
	return &properties{Viper: v, runtime: runtime}
}

// Load reads propertiesName.propertiesType from the first matching path
func Load(propertiesName string, propertiesType string, propertiesPath ...string) (vesta.Properties, error) {
	v := viper.New()
	v.SetConfigName(propertiesName)
	v.SetConfigType(propertiesType)
	for _, p := range propertiesPath {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.WithMessage(err, "read config error")
	}
	return wrap(v), nil
}

func New(propertiesName string, propertiesType string, propertiesPath ...string) vesta.Properties {
	ps, err := Load(propertiesName, propertiesType, propertiesPath...)
	if err != nil {
		panic(err)
	}
	return ps
}

func NewFromString(propertiesType string, content string) (vesta.Properties, error) {
	v := viper.New()
	v.SetConfigType(propertiesType)
	if err := v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, errors.WithMessage(err, "read config error")
	}
	return wrap(v), nil
}
