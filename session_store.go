package goMFA

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionRecordVersion1 = 1

var (
	errMFASessionNotFound  = errors.New("mfa session not found")
	errMFASessionExpired   = errors.New("mfa session expired")
	errMFASessionConcluded = errors.New("mfa session concluded")
	errMFASessionBackend   = errors.New("mfa session backend unavailable")
)

type mfaSessionRecord struct {
	PrincipalID string
	TenantID    string
	Factor      FactorKind
	Status      SessionStatus
	Attempts    uint16
	MaxAttempts uint16
	CodeHash    []byte
	CreatedAt   int64
	ExpiresAt   int64
}

// mfaSessionStore persists session records past conclusion: terminal records
// keep their Redis TTL (challenge TTL + retention window) and only the Status
// byte changes. Budget and status transitions run under WATCH so concurrent
// submissions against one session serialize through Redis, not process locks.
type mfaSessionStore struct {
	redis  *redis.Client
	prefix string
}

func newMFASessionStore(redisClient *redis.Client, prefix string) *mfaSessionStore {
	return &mfaSessionStore{redis: redisClient, prefix: prefix}
}

func (s *mfaSessionStore) key(tenantID, handle string) string {
	return s.prefix + ":" + tenantID + ":" + handle
}

// Save describes the save operation and its observable behavior.
//
// Save may return an error when input validation, dependency calls, or security checks fail.
// Save does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *mfaSessionStore) Save(
	ctx context.Context,
	tenantID, handle string,
	record *mfaSessionRecord,
	ttl time.Duration,
) error {
	encoded, err := encodeMFASessionRecord(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(tenantID, handle), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errMFASessionBackend, err)
	}
	return nil
}

// Get describes the get operation and its observable behavior.
//
// Get may return an error when input validation, dependency calls, or security checks fail.
// Get does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *mfaSessionStore) Get(ctx context.Context, tenantID, handle string) (*mfaSessionRecord, error) {
	data, err := s.redis.Get(ctx, s.key(tenantID, handle)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errMFASessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", errMFASessionBackend, err)
	}
	return decodeMFASessionRecord(data)
}

// RecordFailure burns one attempt under WATCH. It reports exhausted=true when
// the failed attempt was the last one in the budget, in which case the record
// transitions to SessionFailed. Expired and concluded sessions are left
// untouched: reading a dead session never costs an attempt.
//
//	Docs: docs/session.md
func (s *mfaSessionStore) RecordFailure(ctx context.Context, tenantID, handle string) (bool, error) {
	const maxRetries = 4
	key := s.key(tenantID, handle)

	for i := 0; i < maxRetries; i++ {
		var exhausted bool
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeMFASessionRecord(data)
			if err != nil {
				return err
			}
			if record.Status != SessionPending {
				return errMFASessionConcluded
			}
			if time.Now().Unix() > record.ExpiresAt {
				record.Status = SessionExpired
				updated, err := encodeMFASessionRecord(record)
				if err != nil {
					return err
				}
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, key, updated, redis.KeepTTL)
					return nil
				})
				if err != nil {
					return err
				}
				return errMFASessionExpired
			}

			record.Attempts++
			if record.Attempts >= record.MaxAttempts {
				exhausted = true
				record.Status = SessionFailed
			}

			updated, err := encodeMFASessionRecord(record)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, redis.KeepTTL)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return false, errMFASessionNotFound
			case errors.Is(err, errMFASessionExpired), errors.Is(err, errMFASessionConcluded):
				return false, err
			default:
				return false, fmt.Errorf("%w: %v", errMFASessionBackend, err)
			}
		}
		return exhausted, nil
	}

	return false, errMFASessionNotFound
}

// MarkVerified flips a pending session to SessionVerified under WATCH. When
// two goroutines race a correct submission, exactly one transition wins; the
// loser observes a concluded session.
//
//	Docs: docs/session.md
func (s *mfaSessionStore) MarkVerified(ctx context.Context, tenantID, handle string) error {
	const maxRetries = 4
	key := s.key(tenantID, handle)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeMFASessionRecord(data)
			if err != nil {
				return err
			}
			if record.Status != SessionPending {
				return errMFASessionConcluded
			}
			if time.Now().Unix() > record.ExpiresAt {
				record.Status = SessionExpired
				updated, err := encodeMFASessionRecord(record)
				if err != nil {
					return err
				}
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, key, updated, redis.KeepTTL)
					return nil
				})
				if err != nil {
					return err
				}
				return errMFASessionExpired
			}

			record.Status = SessionVerified
			updated, err := encodeMFASessionRecord(record)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, redis.KeepTTL)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return errMFASessionNotFound
			case errors.Is(err, errMFASessionExpired), errors.Is(err, errMFASessionConcluded):
				return err
			default:
				return fmt.Errorf("%w: %v", errMFASessionBackend, err)
			}
		}
		return nil
	}

	return errMFASessionNotFound
}

// MarkExpired is the lazy-expiry write: a read that found the deadline passed
// stamps SessionExpired so later reads see a terminal record. Best effort,
// losing the WATCH race to a concurrent conclusion is fine.
func (s *mfaSessionStore) MarkExpired(ctx context.Context, tenantID, handle string) error {
	const maxRetries = 4
	key := s.key(tenantID, handle)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeMFASessionRecord(data)
			if err != nil {
				return err
			}
			if record.Status != SessionPending {
				return nil
			}

			record.Status = SessionExpired
			updated, err := encodeMFASessionRecord(record)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, redis.KeepTTL)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return errMFASessionNotFound
			}
			return fmt.Errorf("%w: %v", errMFASessionBackend, err)
		}
		return nil
	}

	return nil
}

func encodeMFASessionRecord(record *mfaSessionRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(sessionRecordVersion1)
	buf.WriteByte(byte(record.Factor))
	buf.WriteByte(byte(record.Status))

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.MaxAttempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if len(record.PrincipalID) > 65535 || len(record.TenantID) > 65535 {
		return nil, errors.New("mfa session id length exceeded")
	}
	if len(record.CodeHash) > 65535 {
		return nil, errors.New("mfa session code hash length exceeded")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.PrincipalID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.PrincipalID)
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.TenantID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.TenantID)
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.CodeHash))); err != nil {
		return nil, err
	}
	buf.Write(record.CodeHash)

	return buf.Bytes(), nil
}

func decodeMFASessionRecord(data []byte) (*mfaSessionRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionRecordVersion1 {
		return nil, errors.New("invalid mfa session version")
	}

	factor, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	status, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	record := &mfaSessionRecord{
		Factor: FactorKind(factor),
		Status: SessionStatus(status),
	}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.MaxAttempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	var principalLen uint16
	if err := binary.Read(reader, binary.BigEndian, &principalLen); err != nil {
		return nil, err
	}
	principal := make([]byte, principalLen)
	if _, err := io.ReadFull(reader, principal); err != nil {
		return nil, err
	}
	record.PrincipalID = string(principal)

	var tenantLen uint16
	if err := binary.Read(reader, binary.BigEndian, &tenantLen); err != nil {
		return nil, err
	}
	tenant := make([]byte, tenantLen)
	if _, err := io.ReadFull(reader, tenant); err != nil {
		return nil, err
	}
	record.TenantID = string(tenant)

	var hashLen uint16
	if err := binary.Read(reader, binary.BigEndian, &hashLen); err != nil {
		return nil, err
	}
	if hashLen > 0 {
		hash := make([]byte, hashLen)
		if _, err := io.ReadFull(reader, hash); err != nil {
			return nil, err
		}
		record.CodeHash = hash
	}

	return record, nil
}
