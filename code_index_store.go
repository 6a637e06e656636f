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

const (
	codeIndexKeyPrefix     = "avc"
	codeIndexRecordVersion = 1
)

var (
	errVerificationCodeNotFound = errors.New("verification code not found")
	errVerificationCodeBackend  = errors.New("verification code backend unavailable")
)

type verificationCodeRecord struct {
	PrincipalID string
	ExpiresAt   int64
}

// verificationCodeStore indexes issued lookup codes by their keyed digest.
// The plaintext code never reaches Redis; equal codes map to equal keys, so
// resolution is a point lookup.
type verificationCodeStore struct {
	redis  *redis.Client
	prefix string
}

func newVerificationCodeStore(redisClient *redis.Client) *verificationCodeStore {
	return &verificationCodeStore{redis: redisClient, prefix: codeIndexKeyPrefix}
}

func (s *verificationCodeStore) key(tenantID, digest string) string {
	return s.prefix + ":" + tenantID + ":" + digest
}

// Save describes the save operation and its observable behavior.
//
// Save may return an error when input validation, dependency calls, or security checks fail.
// Save does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *verificationCodeStore) Save(
	ctx context.Context,
	tenantID, digest string,
	record *verificationCodeRecord,
	ttl time.Duration,
) error {
	encoded, err := encodeVerificationCodeRecord(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(tenantID, digest), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errVerificationCodeBackend, err)
	}
	return nil
}

// Consume resolves and deletes a code digest in one WATCH round. Each issued
// code resolves at most once; concurrent resolutions race through Redis and
// exactly one wins.
func (s *verificationCodeStore) Consume(ctx context.Context, tenantID, digest string) (*verificationCodeRecord, error) {
	const maxRetries = 4
	key := s.key(tenantID, digest)

	for i := 0; i < maxRetries; i++ {
		var matched *verificationCodeRecord

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeVerificationCodeRecord(data)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			if err != nil {
				return err
			}

			if time.Now().Unix() > record.ExpiresAt {
				return errVerificationCodeNotFound
			}

			matched = record
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil), errors.Is(err, errVerificationCodeNotFound):
				return nil, errVerificationCodeNotFound
			default:
				return nil, fmt.Errorf("%w: %v", errVerificationCodeBackend, err)
			}
		}
		return matched, nil
	}

	return nil, errVerificationCodeNotFound
}

func encodeVerificationCodeRecord(record *verificationCodeRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(codeIndexRecordVersion)

	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	if len(record.PrincipalID) > 65535 {
		return nil, errors.New("verification code principal id too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.PrincipalID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.PrincipalID)

	return buf.Bytes(), nil
}

func decodeVerificationCodeRecord(data []byte) (*verificationCodeRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != codeIndexRecordVersion {
		return nil, errors.New("invalid verification code version")
	}

	record := &verificationCodeRecord{}
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

	return record, nil
}
