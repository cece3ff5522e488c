package serial

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"printer-service/internal/model"
)

func TestScanFiltersPorts(t *testing.T) {
	s := NewScanner(zap.NewNop()).WithLister(func() ([]string, error) {
		return []string{"/dev/ttyUSB0", "/dev/video0", "/dev/ttyACM1", "COM3", "/dev/cu.usbserial-1410"}, nil
	})
	s.patterns = []string{"/dev/ttyUSB", "/dev/ttyACM"}

	printers, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, printers, 2)

	assert.Equal(t, "/dev/ttyUSB0", printers[0].Link.Serial.Port)
	assert.Equal(t, DefaultBaudRate, printers[0].Link.Serial.BaudRate)
	assert.Equal(t, model.ConnectionTypeSerial, printers[0].Link.Type)
	assert.Equal(t, "serial:/dev/ttyACM1", printers[1].Key())
}

func TestScanListError(t *testing.T) {
	s := NewScanner(zap.NewNop()).WithLister(func() ([]string, error) {
		return nil, errors.New("permission denied")
	})

	_, err := s.Scan(context.Background())
	assert.ErrorContains(t, err, "permission denied")
}
