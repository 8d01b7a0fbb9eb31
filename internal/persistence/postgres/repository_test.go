package postgres

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZoneName(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	assert.Equal(t, "UTC", zoneName(time.UTC))
	assert.Equal(t, "Europe/Berlin", zoneName(berlin))
	assert.Equal(t, "UTC-02:00", zoneName(time.FixedZone("custom", 2*60*60)))
	assert.Equal(t, "UTC+05:30", zoneName(time.FixedZone("", -(5*60*60+30*60))))
}

func TestZoneNameResolvesLocal(t *testing.T) {
	t.Run("from TZ", func(t *testing.T) {
		t.Setenv("TZ", "Asia/Tokyo")
		assert.Equal(t, "Asia/Tokyo", zoneName(time.Local))
	})

	t.Run("empty TZ is UTC", func(t *testing.T) {
		t.Setenv("TZ", "")
		assert.Equal(t, "UTC", zoneName(time.Local))
	})

	t.Run("from localtime link", func(t *testing.T) {
		t.Setenv("TZ", "")
		require.NoError(t, os.Unsetenv("TZ"))

		link := filepath.Join(t.TempDir(), "localtime")
		require.NoError(t, os.Symlink("/usr/share/zoneinfo/Europe/Berlin", link))
		prev := localtimePath
		localtimePath = link
		t.Cleanup(func() { localtimePath = prev })

		assert.Equal(t, "Europe/Berlin", zoneName(time.Local))
		assert.Equal(t, "Europe/Berlin", zoneName(nil))
	})
}
