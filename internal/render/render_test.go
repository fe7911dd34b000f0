package render_test

import (
	"testing"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/manifest"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/render"
	"github.com/stretchr/testify/assert"
)

func TestPHPHandler(t *testing.T) {
	v := "8.1"
	assert.Equal(t, "unix:/run/php/php8.1-fpm.sock", render.PHPHandler(&v))

	unknown := "5.6"
	assert.Equal(t, "", render.PHPHandler(&unknown))

	assert.Equal(t, "", render.PHPHandler(nil))
}

func TestVhostConfigIsDeterministic(t *testing.T) {
	a := render.VhostConfig("example.com", 8080, "/var/www/ais/example", "unix:/run/php/php8.1-fpm.sock")
	b := render.VhostConfig("example.com", 8080, "/var/www/ais/example", "unix:/run/php/php8.1-fpm.sock")
	assert.Equal(t, a, b)
	assert.Contains(t, a, "ServerName example.com")
	assert.Contains(t, a, "proxy:unix:/run/php/php8.1-fpm.sock")
}

func TestVhostConfigOmitsPHPBlockWhenNoHandler(t *testing.T) {
	out := render.VhostConfig("example.com", 80, "/var/www/ais/example", "")
	assert.NotContains(t, out, "FilesMatch")
}

func TestUnitFileRestartPolicies(t *testing.T) {
	always := render.UnitFile("svc", manifest.ServiceSettings{
		ExecCommand:   "/usr/bin/node app.js",
		RestartPolicy: manifest.RestartPolicy{Kind: manifest.RestartAlways},
	}, false)
	assert.Contains(t, always, "Restart=always")

	onFailure := render.UnitFile("svc", manifest.ServiceSettings{
		ExecCommand: "/usr/bin/node app.js",
		RestartPolicy: manifest.RestartPolicy{
			Kind:              manifest.RestartOnFailure,
			MaxBurst:          5,
			RetryAfterMinutes: 2,
		},
	}, true)
	assert.Contains(t, onFailure, "Restart=on-failure")
	assert.Contains(t, onFailure, "StartLimitBurst=5")
	assert.Contains(t, onFailure, "RestartSec=2min")
	assert.Contains(t, onFailure, "PermissionsStartOnly=true")

	never := render.UnitFile("svc", manifest.ServiceSettings{RestartPolicy: manifest.RestartPolicy{Kind: manifest.RestartNo}}, false)
	assert.Contains(t, never, "Restart=no")
}

func TestWatcherScriptIncludesCooldownAndServiceID(t *testing.T) {
	out := render.WatcherScript("/var/www/ais/example", "abcd1234", render.DefaultCooldownSeconds)
	assert.Contains(t, out, "COOLDOWN=3")
	assert.Contains(t, out, "systemctl restart abcd1234.service")
}

func TestWatcherUnitFileReferencesScript(t *testing.T) {
	out := render.WatcherUnitFile("abcd1234", "/opt/monitors/abcd1234.sh")
	assert.Contains(t, out, "/bin/sh /opt/monitors/abcd1234.sh")
}
