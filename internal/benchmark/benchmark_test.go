package benchmark

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/testutil"
)

func TestSuiteRun(t *testing.T) {
	suite := NewSuite()
	suite.Add("success_test", func(context.Context) error {
		time.Sleep(time.Millisecond)
		return nil
	})
	calls := 0
	suite.Add("error_test", func(context.Context) error {
		calls++
		if calls == 2 {
			return errors.New("test error")
		}
		return nil
	})
	assert.Equal(t, []string{"success_test", "error_test"}, suite.Names())

	result := suite.Run(context.Background(), "success_test", 5)
	require.NoError(t, result.Error)
	assert.Equal(t, 5, result.Iterations)
	assert.Positive(t, result.Duration)
	assert.Positive(t, result.PerOp())
	assert.Positive(t, result.OpsPerSec())

	result = suite.Run(context.Background(), "error_test", 3)
	require.Error(t, result.Error)
	assert.Equal(t, 1, result.Iterations)
	assert.Contains(t, result.String(), "ERROR after 1 iterations")

	result = suite.Run(context.Background(), "non_existent", 1)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "not found")
}

func TestSuiteRunAll(t *testing.T) {
	suite := NewSuite()
	suite.Add("fast_test", func(context.Context) error {
		time.Sleep(time.Millisecond)
		return nil
	})
	suite.Add("slow_test", func(context.Context) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	})

	results := suite.RunAll(context.Background(), 3)
	require.Len(t, results, 2)
	assert.Equal(t, results, suite.Results())
	assert.Equal(t, "fast_test", results[0].Name)
	assert.Equal(t, 3, results[1].Iterations)
	assert.Greater(t, results[1].Duration, results[0].Duration)

	var buf bytes.Buffer
	suite.PrintResults(&buf)
	assert.Contains(t, buf.String(), "Benchmark Results:")
	assert.Contains(t, buf.String(), "slow_test: 3 iterations")
}

func TestSuiteRunAllCancelled(t *testing.T) {
	suite := NewSuite()
	suite.Add("never", func(context.Context) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, suite.RunAll(ctx, 10))
}

func TestResultZeroValues(t *testing.T) {
	var r Result
	assert.Zero(t, r.PerOp())
	assert.Zero(t, r.OpsPerSec())
}

func TestTimer(t *testing.T) {
	timer := NewTimer("span")
	time.Sleep(time.Millisecond)
	d := timer.Stop()
	assert.Equal(t, d, timer.Duration())
	assert.Contains(t, timer.String(), "span: ")
}

func TestAddDecodeCases(t *testing.T) {
	images := []Image{
		{Name: "qr", Image: testutil.QRCodeImage(t, "bench", 200)},
		{Name: "blank", Image: testutil.BlankImage(64, 64)},
	}

	suite := NewSuite()
	release, err := AddDecodeCases(suite, images, DecodeOptions{
		Formats: barcode.FormatSet{barcode.FormatQRCode},
		Workers: 2,
	})
	require.NoError(t, err)
	defer release()

	assert.Equal(t, []string{"reader/qr", "reader/blank", "pool/all"}, suite.Names())
	for _, r := range suite.RunAll(context.Background(), 2) {
		require.NoError(t, r.Error, r.Name)
		assert.Equal(t, 2, r.Iterations, r.Name)
	}
}

func TestAddDecodeCasesErrors(t *testing.T) {
	_, err := AddDecodeCases(NewSuite(), nil, DecodeOptions{})
	require.Error(t, err)

	_, err = AddDecodeCases(NewSuite(), []Image{{Name: "x", Image: testutil.BlankImage(8, 8)}},
		DecodeOptions{Formats: barcode.FormatSet{barcode.FormatMaxiCode}})
	require.ErrorIs(t, err, barcode.ErrUnsupportedFormat)
}
