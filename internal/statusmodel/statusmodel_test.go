package statusmodel_test

import (
	"encoding/json"
	"testing"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/statusmodel"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppNameJSONRoundTrip(t *testing.T) {
	for _, name := range []statusmodel.AppName{statusmodel.Github, statusmodel.Directive, statusmodel.Apache, statusmodel.Systemd, statusmodel.Security} {
		data, err := name.MarshalJSON()
		require.NoError(t, err)

		var out statusmodel.AppName
		require.NoError(t, out.UnmarshalJSON(data))
		assert.Equal(t, name, out)
	}
}

func TestAppNameUnmarshalUnknownErrors(t *testing.T) {
	var a statusmodel.AppName
	assert.Error(t, a.UnmarshalJSON([]byte(`"Bogus"`)))
}

func TestAppNameTextRoundTrip(t *testing.T) {
	for _, name := range []statusmodel.AppName{statusmodel.Github, statusmodel.Directive, statusmodel.Apache, statusmodel.Systemd, statusmodel.Security} {
		text, err := name.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, name.String(), string(text))

		var out statusmodel.AppName
		require.NoError(t, out.UnmarshalText(text))
		assert.Equal(t, name, out)
	}
}

func TestAppNameTextUnmarshalUnknownErrors(t *testing.T) {
	var a statusmodel.AppName
	assert.Error(t, a.UnmarshalText([]byte("Bogus")))
}

// TestAppNameAsMapKeySerializesAsSymbolicName guards the wire contract: a
// map keyed by AppName must encode to symbolic-name keys, not the
// underlying int. encoding/json only consults MarshalText for map keys,
// never MarshalJSON, so this only works because AppName also implements
// encoding.TextMarshaler.
func TestAppNameAsMapKeySerializesAsSymbolicName(t *testing.T) {
	m := map[statusmodel.AppName]statusmodel.StatusRecord{
		statusmodel.Apache: {App: statusmodel.Apache, Status: statusmodel.Running},
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Apache"`)

	var out map[statusmodel.AppName]statusmodel.StatusRecord
	require.NoError(t, json.Unmarshal(data, &out))
	rec, ok := out[statusmodel.Apache]
	require.True(t, ok)
	assert.Equal(t, statusmodel.Running, rec.Status)
}

func TestParseAppName(t *testing.T) {
	got, ok := statusmodel.ParseAppName("Apache")
	require.True(t, ok)
	assert.Equal(t, statusmodel.Apache, got)

	_, ok = statusmodel.ParseAppName("Nope")
	assert.False(t, ok)
}

func TestStatusRecordJSONRoundTrip(t *testing.T) {
	rec := statusmodel.StatusRecord{
		App:         statusmodel.Github,
		Status:      statusmodel.Running,
		WallSeconds: 1000,
		Version:     version.Tag{Number: "1.0.0", Channel: version.Production},
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var out statusmodel.StatusRecord
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, rec.Equal(out))
}

func TestStatusRecordEqual(t *testing.T) {
	base := statusmodel.StatusRecord{App: statusmodel.Apache, Status: statusmodel.Running, WallSeconds: 5}
	same := base
	different := base
	different.Status = statusmodel.Stopped

	assert.True(t, base.Equal(same))
	assert.False(t, base.Equal(different))
}
