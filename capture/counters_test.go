package capture_test

import (
	"errors"
	"testing"

	"github.com/Webictbyleo/capsule"
	"github.com/Webictbyleo/capsule/capture"
	"github.com/stretchr/testify/assert"
)

func TestCounters_record_classifies_by_error_code(t *testing.T) {
	t.Parallel()

	var c capture.Counters
	c.Record(capsule.Errorf(capsule.EFORBIDDEN, "403"))
	c.Record(capsule.Errorf(capsule.ENOTFOUND, "404"))
	c.Record(capsule.Errorf(capsule.ERATELIMITED, "429"))
	c.Record(capsule.Errorf(capsule.EUNAVAILABLE, "timeout"))
	c.Record(capsule.Errorf(capsule.EMISMATCH, "not an image"))
	c.Record(capsule.Errorf(capsule.EINTERNAL, "disk full"))
	c.Record(capsule.Errorf(capsule.ECONFLICT, "filename collisions exhausted"))
	c.Record(errors.New("plain errors classify as internal"))

	assert.Equal(t, 1, c.Forbidden)
	assert.Equal(t, 1, c.NotFound)
	assert.Equal(t, 1, c.RateLimited)
	assert.Equal(t, 1, c.Unavailable)
	assert.Equal(t, 1, c.Mismatch)
	assert.Equal(t, 2, c.Internal)
	assert.Equal(t, 1, c.Other)
	assert.Equal(t, 8, c.Total())
}

func TestCounters_reset(t *testing.T) {
	t.Parallel()

	var c capture.Counters
	c.Record(capsule.Errorf(capsule.ENOTFOUND, "404"))
	c.Reset()
	assert.Equal(t, 0, c.Total())
}
