package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newUUIDv7AtTime builds a UUIDv7 whose first 48 bits carry t in Unix milliseconds.
func newUUIDv7AtTime(t time.Time) uuid.UUID {
	var id uuid.UUID

	ms := uint64(t.UnixMilli())
	id[0] = byte(ms >> 40)
	id[1] = byte(ms >> 32)
	id[2] = byte(ms >> 24)
	id[3] = byte(ms >> 16)
	id[4] = byte(ms >> 8)
	id[5] = byte(ms)

	// version 7, RFC 4122 variant
	id[6] = 0x70
	id[8] = 0x80
	id[15] = 0x01

	return id
}

func TestNewAssessmentIDIsVersion7(t *testing.T) {
	id := NewAssessmentID()
	require.NoError(t, ValidateAssessmentID(id))

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestNewAssessmentIDsAreTimeOrdered(t *testing.T) {
	first := NewAssessmentID()
	time.Sleep(2 * time.Millisecond)
	second := NewAssessmentID()

	assert.Less(t, first, second)
	assert.False(t, AssessmentIDTime(second).Before(AssessmentIDTime(first)))
}

func TestValidateAssessmentIDRejectsV4(t *testing.T) {
	err := ValidateAssessmentID(uuid.NewString())
	assert.ErrorIs(t, err, ErrNotUUIDv7)
}

func TestValidateAssessmentIDRejectsMalformed(t *testing.T) {
	for _, tc := range []string{"not-a-uuid", "12345", "", "019471a0-0000-7000-8000-"} {
		assert.ErrorIs(t, ValidateAssessmentID(tc), ErrInvalidUUID, tc)
	}
}

func TestValidateAssessmentIDFutureTimestamp(t *testing.T) {
	future := newUUIDv7AtTime(time.Now().Add(5 * time.Minute))
	assert.ErrorIs(t, ValidateAssessmentID(future.String()), ErrFutureTimestamp)

	nearFuture := newUUIDv7AtTime(time.Now().Add(30 * time.Second))
	assert.NoError(t, ValidateAssessmentID(nearFuture.String()))

	past := newUUIDv7AtTime(time.Now().Add(-24 * time.Hour))
	assert.NoError(t, ValidateAssessmentID(past.String()))
}

func TestAssessmentIDTime(t *testing.T) {
	specific := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	id := newUUIDv7AtTime(specific)

	assert.Equal(t, specific.UnixMilli(), AssessmentIDTime(id.String()).UnixMilli())
	assert.True(t, AssessmentIDTime("not-a-uuid").IsZero())
}
