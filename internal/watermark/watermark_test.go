package watermark

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"giipview/internal/transform"
)

func TestApplyNoOpWhenNotSet(t *testing.T) {
	w := &Watermark{Set: false}
	buf := transform.NewByteBuffer(4, 4, 3)
	before := append([]byte(nil), buf.Pix...)
	w.Apply(buf, 8, 0)
	assert.Equal(t, before, buf.Pix)
}

func TestApplyNoOpWhenProbabilityZero(t *testing.T) {
	rgba := make([]byte, 2*2*4)
	for i := range rgba {
		rgba[i] = 255
	}
	w := New(rgba, 2, 2, 1.0, 0.0)
	buf := transform.NewByteBuffer(4, 4, 3)
	before := append([]byte(nil), buf.Pix...)
	w.Apply(buf, 8, 0)
	assert.Equal(t, before, buf.Pix)
}

func TestApplyAlwaysStampsAtProbabilityOne(t *testing.T) {
	rgba := make([]byte, 2*2*4)
	for i := 0; i < 4; i++ {
		rgba[i*4] = 255
		rgba[i*4+1] = 255
		rgba[i*4+2] = 255
		rgba[i*4+3] = 255
	}
	w := New(rgba, 2, 2, 1.0, 1.0)
	buf := transform.NewByteBuffer(4, 4, 3)
	w.Apply(buf, 8, 0)

	var nonZero bool
	for _, v := range buf.Pix {
		if v != 0 {
			nonZero = true
			break
		}
	}
	assert.True(t, nonZero, "a probability-1 watermark over a black tile must leave a mark")
}

func TestBlendClampsAt255For8Bit(t *testing.T) {
	rgba := []byte{255, 255, 255, 255}
	w := New(rgba, 1, 1, 1.0, 1.0)
	buf := transform.NewByteBuffer(1, 1, 3)
	buf.Pix[0], buf.Pix[1], buf.Pix[2] = 250, 250, 250
	w.Apply(buf, 8, 0)
	for _, v := range buf.Pix {
		assert.LessOrEqual(t, int(v), 255)
	}
}
