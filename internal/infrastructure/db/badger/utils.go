package badgerdb

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ark-network/wager/internal/core/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/timshannon/badgerhold/v4"
)

func createDB(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	if !isInMemory {
		ticker := time.NewTicker(30 * time.Minute)

		go func() {
			for {
				<-ticker.C
				if err := db.Badger().RunValueLogGC(0.5); err != nil && err != badger.ErrNoRewrite {
					if logger != nil {
						logger.Errorf("%s", err)
					}
				}
			}
		}()
	}

	return db, nil
}

// eventDTO tags each stored event with its type so it can be decoded
// without guessing.
type eventDTO struct {
	Type domain.EventType
	Data json.RawMessage
}

func serializeEvents(events []domain.PoolEvent) (*eventsDTO, error) {
	rawEvents := make([][]byte, 0, len(events))
	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return nil, err
		}
		buf, err := json.Marshal(eventDTO{event.GetType(), data})
		if err != nil {
			return nil, err
		}
		rawEvents = append(rawEvents, buf)
	}
	return &eventsDTO{rawEvents}, nil
}

func deserializeEvents(rawEvents [][]byte) ([]domain.PoolEvent, error) {
	events := make([]domain.PoolEvent, 0, len(rawEvents))
	for _, buf := range rawEvents {
		event, err := deserializeEvent(buf)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func deserializeEvent(buf []byte) (domain.PoolEvent, error) {
	var dto eventDTO
	if err := json.Unmarshal(buf, &dto); err != nil {
		return nil, err
	}

	var event domain.PoolEvent
	var err error
	switch dto.Type {
	case domain.PoolCreatedEvent:
		event, err = decode[domain.PoolCreated](dto.Data)
	case domain.BetPlacedEvent:
		event, err = decode[domain.BetPlaced](dto.Data)
	case domain.OutcomeProposedEvent:
		event, err = decode[domain.OutcomeProposed](dto.Data)
	case domain.OutcomeChallengedEvent:
		event, err = decode[domain.OutcomeChallenged](dto.Data)
	case domain.PoolSettledEvent:
		event, err = decode[domain.PoolSettled](dto.Data)
	case domain.PoolCancelledEvent:
		event, err = decode[domain.PoolCancelled](dto.Data)
	case domain.PrizeClaimedEvent:
		event, err = decode[domain.PrizeClaimed](dto.Data)
	case domain.StakeRefundedEvent:
		event, err = decode[domain.StakeRefunded](dto.Data)
	default:
		return nil, fmt.Errorf("%w: unknown event type %d", domain.ErrMalformedRecord, dto.Type)
	}
	return event, err
}

func decode[T domain.PoolEvent](data []byte) (domain.PoolEvent, error) {
	var event T
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrMalformedRecord, err)
	}
	return event, nil
}
