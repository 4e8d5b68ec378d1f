package kafka

import (
	"time"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
	"gopkg.in/tomb.v2"
	"vesta/lib/component"
	"vesta/lib/log"
	"vesta/lib/properties"
	"vesta/vesta"
)

var (
	TopicsProperty                = properties.NewRequiredProperty[[]string]("topics", "topics to consume")
	BrokersProperty               = properties.NewRequiredProperty[[]string]("brokers", "bootstrap brokers, host:port")
	VersionProperty               = properties.NewProperty[string]("version", "kafka protocol version", "2.4.0")
	ClientIdProperty              = properties.NewProperty[string]("client.id", "client id", "")
	GroupIdProperty               = properties.NewProperty[string]("group.id", "consumer group, every subtask joins it", "vesta")
	OffsetsCommitIntervalProperty = properties.NewProperty[time.Duration]("offsets.commit.interval", "offset auto commit interval", 5*time.Second)
	OffsetsInitialProperty        = properties.NewValidatedProperty[string]("offsets.initial", "newest or oldest", "oldest",
		func(s string) error {
			if s != "newest" && s != "oldest" {
				return errors.Errorf("offsets.initial must be newest or oldest, got %s", s)
			}
			return nil
		})
	BufferProperty = properties.NewProperty[int]("buffer", "messages buffered between the consumer and the task", 256)

	SASLUserProperty     = properties.NewProperty[string]("sasl-username", "", "")
	SASLPasswordProperty = properties.NewProperty[string]("sasl-password", "", "")
)

var newConsumerGroup = sarama.NewConsumerGroup

// source consumes topics through one consumer group, kafka balances partitions among subtasks
type source struct {
	ctx     vesta.Context
	logger  vesta.Logger
	config  *sarama.Config
	brokers []string
	groupID string
	topics  []string
	buffer  int
}

func (s *source) PropertiesDef() vesta.PropertiesDef {
	return vesta.PropertiesDef{TopicsProperty, BrokersProperty, VersionProperty, ClientIdProperty, GroupIdProperty,
		OffsetsCommitIntervalProperty, OffsetsInitialProperty, BufferProperty, SASLUserProperty, SASLPasswordProperty}
}

func (s *source) Open(ctx vesta.Context) error {
	s.ctx = ctx
	s.logger = log.Ctx(ctx)
	p := ctx.Properties()

	config := sarama.NewConfig()
	version, err := sarama.ParseKafkaVersion(p.GetString(VersionProperty))
	if err != nil {
		return err
	}
	config.Version = version
	saslUser := p.GetString(SASLUserProperty)
	saslPassword := p.GetString(SASLPasswordProperty)
	if saslUser != "" && saslPassword != "" {
		config.Net.SASL.User = saslUser
		config.Net.SASL.Password = saslPassword
		config.Net.SASL.Enable = true
	}
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.AutoCommit.Interval = p.GetDuration(OffsetsCommitIntervalProperty)
	if p.GetString(OffsetsInitialProperty) == "newest" {
		config.Consumer.Offsets.Initial = sarama.OffsetNewest
	} else {
		config.Consumer.Offsets.Initial = sarama.OffsetOldest
	}
	if clientID := p.GetString(ClientIdProperty); clientID != "" {
		config.ClientID = clientID
	}

	s.config = config
	s.brokers = p.GetStringSlice(BrokersProperty)
	s.groupID = p.GetString(GroupIdProperty)
	s.topics = p.GetStringSlice(TopicsProperty)
	s.buffer = p.GetInt(BufferProperty)
	return nil
}

func (s *source) Close() error {
	return nil
}

func (s *source) Boundedness() vesta.Boundedness {
	return vesta.ContinuousUnbounded
}

func (s *source) CreateReader(_ vesta.ReaderContext) (vesta.SourceReader, error) {
	group, err := newConsumerGroup(s.brokers, s.groupID, s.config)
	if err != nil {
		return nil, errors.WithMessage(err, "can't create kafka consumer group")
	}
	r := &reader{
		source:   s,
		group:    group,
		messages: make(chan pending, s.buffer),
		logger:   s.logger,
	}
	r.life, _ = tomb.WithContext(s.ctx.Ctx())
	r.life.Go(r.consume)
	r.life.Go(r.handleErrors)
	return r, nil
}

// pending is a consumed event, ack marks its offset once the task took it
type pending struct {
	event *vesta.Event
	ack   func()
}

type reader struct {
	source   *source
	group    sarama.ConsumerGroup
	messages chan pending
	life     *tomb.Tomb
	logger   vesta.Logger
}

func (r *reader) consume() error {
	for {
		err := r.group.Consume(r.life.Context(nil), r.source.topics, r)
		select {
		case <-r.life.Dying():
			return nil
		default:
		}
		if errors.Is(err, sarama.ErrClosedConsumerGroup) {
			return nil
		}
		if err != nil {
			return errors.WithMessage(err, "can't consume kafka")
		}
	}
}

func (r *reader) handleErrors() error {
	for {
		select {
		case <-r.life.Dying():
			return nil
		case err, ok := <-r.group.Errors():
			if !ok {
				return nil
			}
			r.logger.Errorw("received error.", "err", err)
		}
	}
}

func (r *reader) Setup(_ sarama.ConsumerGroupSession) error {
	r.logger.Infof("set up...")
	return nil
}

func (r *reader) Cleanup(_ sarama.ConsumerGroupSession) error {
	r.logger.Infof("clean up...")
	return nil
}

func (r *reader) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if !r.push(message, func() { session.MarkMessage(message, "") }) {
				return nil
			}
		case <-session.Context().Done():
			return nil
		}
	}
}

// push blocks until the task has room or the reader closes
func (r *reader) push(message *sarama.ConsumerMessage, ack func()) bool {
	select {
	case r.messages <- pending{event: toEvent(message), ack: ack}:
		return true
	case <-r.life.Dying():
		return false
	}
}

func toEvent(message *sarama.ConsumerMessage) *vesta.Event {
	headers := make(map[string]string, len(message.Headers))
	for _, recordHeader := range message.Headers {
		headers[string(recordHeader.Key)] = string(recordHeader.Value)
	}
	eventTime := message.Timestamp
	if eventTime.IsZero() {
		eventTime = time.Now()
	}
	return &vesta.Event{
		Meta: map[string]any{
			"topic":     message.Topic,
			"partition": message.Partition,
			"offset":    message.Offset,
			"key":       string(message.Key),
			"headers":   headers,
		},
		Message: string(message.Value),
		Time:    eventTime,
	}
}

func (r *reader) PollNext(output vesta.ReaderOutput) (vesta.InputStatus, error) {
	select {
	case p := <-r.messages:
		output.Collect(p.event)
		p.ack()
		return vesta.MoreAvailable, nil
	case <-r.life.Dead():
		return vesta.NothingAvailable, r.life.Err()
	default:
		return vesta.NothingAvailable, nil
	}
}

func (r *reader) Close() error {
	r.life.Kill(nil)
	var err error
	for i := 1; i < 4; i++ {
		if err = r.group.Close(); err == nil {
			break
		}
		r.logger.Warnw("close kafka consumer error, waiting 1 second.", "time", i, "err", err)
		time.Sleep(1 * time.Second)
	}
	if waitErr := r.life.Wait(); waitErr != nil && err == nil {
		err = waitErr
	}
	return errors.WithMessage(err, "can't close kafka consumer")
}

func New() vesta.Source {
	return &source{}
}

func init() {
	component.RegisterNewSourceFunc("kafka", New)
}
