package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/dooyeoung/medops-sub001/core/es"
)

const (
	defaultSubjectPrefix = "medops.es"
	defaultStreamName    = "MEDOPS_EVENTS"
)

type EventStoreConfig struct {
	// Connect creates the underlying NATS connection. Defaults to ConnectDefault.
	Connect Connector
	// Log for diagnostics (optional).
	Log *slog.Logger
	// SubjectPrefix is the prefix events are published under.
	SubjectPrefix string
	// StreamSubjects is the list of subjects the stream is fed with.
	StreamSubjects []string
	StreamName     string
	// MaxAge bounds event retention. Zero keeps events forever.
	MaxAge time.Duration
}

// EventStore persists record streams in a JetStream stream, one subject per
// aggregate. The optimistic version check reads the last message for the
// aggregate's subject, and each publish carries an expected-last-sequence
// guard on that subject so a racing competitor is rejected by the server,
// not just by the local head check. Msg-ID dedupe additionally suppresses
// redelivery of the same envelope.
type EventStore struct {
	nc            *natsgo.Conn
	closeNc       closeFunc
	js            jetstream.JetStream
	stream        jetstream.Stream
	log           *slog.Logger
	subjectPrefix string
	streamName    string
}

func NewEventStore(cfg EventStoreConfig) (*EventStore, error) {
	doConnect := cfg.Connect
	if doConnect == nil {
		doConnect = ConnectDefault()
	}

	nc, closeNatsCon, err := doConnect()
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, err
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	streamName := strings.ToUpper(cfg.StreamName)
	if streamName == "" {
		streamName = defaultStreamName
	}

	subjectPrefix := cfg.SubjectPrefix
	if subjectPrefix == "" {
		subjectPrefix = defaultSubjectPrefix
	}

	streamSubjects := cfg.StreamSubjects
	if len(streamSubjects) == 0 {
		streamSubjects = []string{subjectPrefix + ".>"}
	}

	log = log.With(
		slog.String("store", "nats_js"),
		slog.String("stream", streamName),
		slog.String("subject_prefix", subjectPrefix),
	)

	stream, streamInfo, err := ensureStream(js, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: streamSubjects,
		Storage:  jetstream.FileStorage,
		FirstSeq: 1,
		MaxAge:   cfg.MaxAge,
	})
	if err != nil {
		return nil, err
	}

	log.Debug("ensured stream", slog.Any("stream", streamInfo.Config.Name))

	return &EventStore{
		nc:            nc,
		closeNc:       closeNatsCon,
		js:            js,
		log:           log,
		stream:        stream,
		subjectPrefix: subjectPrefix,
		streamName:    streamName,
	}, nil
}

func (e *EventStore) Close() error {
	e.js.CleanupPublisher()
	e.closeNc()
	e.log.Debug("closed event store")
	return nil
}

func (e *EventStore) Load(
	ctx context.Context,
	aggType string,
	aggID string,
	opts ...es.StoreLoadOption,
) ([]es.Envelope, error) {
	if aggType == "" {
		return nil, errors.New("aggregate type is empty")
	}
	if aggID == "" {
		return nil, errors.New("aggregate id is empty")
	}

	loadOpts := es.NewStoreLoadOptions(opts...)
	subj := e.subjectForAggregate(aggType, aggID)

	// The most recent event bounds the read; without one there is no stream.
	mre, err := e.getMostRecentEventForAgg(ctx, aggType, aggID)
	if err != nil {
		return nil, err
	}
	if mre == nil {
		return nil, es.ErrAggregateNotFound
	}
	endSeq := mre.Seq

	consumerCfg := jetstream.OrderedConsumerConfig{
		DeliverPolicy:  jetstream.DeliverAllPolicy,
		FilterSubjects: []string{subj},
	}
	if loadOpts.StartSeq > 0 {
		consumerCfg.DeliverPolicy = jetstream.DeliverByStartSequencePolicy
		consumerCfg.OptStartSeq = loadOpts.StartSeq
	}
	cc, err := e.stream.OrderedConsumer(ctx, consumerCfg)
	if err != nil {
		return nil, err
	}
	return e.consumeEvents(ctx, cc, endSeq, loadOpts.StartVersion)
}

func (e *EventStore) consumeEvents(
	ctx context.Context,
	cc jetstream.Consumer,
	endSeq uint64,
	startVersion es.Version,
) (loadedEvents []es.Envelope, err error) {
	loadedEvents = make([]es.Envelope, 0)

outer:
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		mb, err := cc.FetchNoWait(100)
		if err != nil {
			return nil, err
		}
		if mb.Error() != nil {
			return nil, mb.Error()
		}

		empty := true
		for msg := range mb.Messages() {
			empty = false
			ev, err := e.decodeMsg(msg)
			if err != nil {
				return nil, fmt.Errorf("failed to decode message: %w", err)
			}

			if ev.Version >= startVersion {
				loadedEvents = append(loadedEvents, *ev)
			}

			if endSeq > 0 && ev.Seq >= endSeq {
				break outer
			}
		}

		if empty {
			break
		}
	}

	return loadedEvents, nil
}

func (e *EventStore) Append(
	ctx context.Context,
	aggType string,
	aggID string,
	expectedVersion es.Version,
	events []es.Envelope,
) (*es.StoreAppendResult, error) {
	if len(events) == 0 {
		return nil, es.ErrStoreNoEvents
	}
	if aggType == "" {
		return nil, errors.New("aggregate type is empty")
	}
	if aggID == "" {
		return nil, errors.New("aggregate id is empty")
	}

	head, err := e.getMostRecentEventForAgg(ctx, aggType, aggID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream head: %w", err)
	}

	// headSeq 0 means the subject holds no message yet; the publish guard
	// below then requires the subject to still be empty at write time.
	var (
		headVersion es.Version
		headSeq     uint64
	)
	if head != nil {
		headVersion = head.Version
		headSeq = head.Seq
	}

	if headVersion != expectedVersion {
		return nil, fmt.Errorf(
			"%w: expected version %d, got %d (agg_type=%s agg_id=%s)",
			es.ErrConcurrencyConflict,
			expectedVersion,
			headVersion,
			aggType,
			aggID,
		)
	}

	lastSeq := headSeq
	for _, ev := range events {
		lastSeq, err = e.append(ctx, aggType, ev, lastSeq)
		if err != nil {
			return nil, err
		}
	}

	return &es.StoreAppendResult{LastSeq: lastSeq}, nil
}

// append publishes one envelope, requiring expectSeq to still be the last
// stream sequence on the aggregate's subject. A racer that published first
// moved the subject past expectSeq, so the server rejects this write and it
// surfaces as es.ErrConcurrencyConflict.
func (e *EventStore) append(ctx context.Context, aggType string, ev es.Envelope, expectSeq uint64) (uint64, error) {
	if err := ev.Validate(); err != nil {
		return 0, fmt.Errorf("failed to validate event: %w", err)
	}

	subject := e.subjectForAggregate(aggType, ev.AggregateID)
	msg := natsgo.NewMsg(subject)
	msg.Header.Set("x-event-type", ev.Type)
	msg.Header.Set("x-aggregate-type", aggType)
	msg.Header.Set("x-aggregate-id", ev.AggregateID)

	var err error
	msg.Data, err = json.Marshal(ev)
	if err != nil {
		return 0, err
	}

	ackF, err := e.js.PublishMsgAsync(
		msg,
		jetstream.WithMsgID(ev.ID),
		jetstream.WithExpectLastSequencePerSubject(expectSeq),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append to subject %s %s: %w", subject, ev.Type, err)
	}

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case ack := <-ackF.Ok():
		return ack.Sequence, nil
	case err := <-ackF.Err():
		if isWrongLastSequence(err) {
			return 0, fmt.Errorf(
				"%w: subject %s moved past sequence %d: %s",
				es.ErrConcurrencyConflict, subject, expectSeq, err.Error(),
			)
		}
		return 0, err
	}
}

func isWrongLastSequence(err error) bool {
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}

func ensureStream(js jetstream.JetStream, cfg jetstream.StreamConfig) (jetstream.Stream, *jetstream.StreamInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*natsgo.DefaultTimeout)
	defer cancel()

	s, err := js.CreateOrUpdateStream(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	si, err := s.Info(ctx)
	if err != nil {
		return nil, nil, err
	}
	return s, si, nil
}

func (e *EventStore) decodeMsg(msg jetstream.Msg) (*es.Envelope, error) {
	md, err := msg.Metadata()
	if err != nil {
		return nil, err
	}

	env := &es.Envelope{}
	if err := json.Unmarshal(msg.Data(), env); err != nil {
		return nil, err
	}
	env.Seq = md.Sequence.Stream
	return env, nil
}

func (e *EventStore) getMostRecentEventForAgg(ctx context.Context, aggType, aggID string) (*es.Envelope, error) {
	subject := e.subjectForAggregate(aggType, aggID)
	lm, err := e.stream.GetLastMsgForSubject(ctx, subject)
	if err != nil {
		if errors.Is(err, jetstream.ErrMsgNotFound) {
			return nil, nil
		}
		return nil, err
	}

	lastMsg := &es.Envelope{}
	if err := json.Unmarshal(lm.Data, lastMsg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal last message for subject %q: %w", subject, err)
	}
	lastMsg.Seq = lm.Sequence
	return lastMsg, nil
}

func (e *EventStore) subjectForAggregate(aggType, aggID string) string {
	return e.subjectPrefix + "." + aggType + "." + aggID
}

var _ es.EventStore = (*EventStore)(nil)
