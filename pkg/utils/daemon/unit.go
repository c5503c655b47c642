package daemon

import "strings"

const (
	serviceName = "battwatch.service"
)

var (
	unitPath = "/etc/systemd/system/" + serviceName
)

const unitTemplate = `[Unit]
Description=battwatch battery metrics daemon
After=local-fs.target

[Service]
Type=simple
ExecStart=/path/to/battwatch daemon --config=/path/to/config --daemon-socket=/path/to/socket
ExecReload=/bin/kill -HUP $MAINPID
Restart=on-failure
RestartSec=5

[Install]
WantedBy=multi-user.target
`

// renderUnit fills the unit template with the daemon paths.
func renderUnit(exePath, configPath, socketPath string) string {
	return strings.NewReplacer(
		"/path/to/battwatch", exePath,
		"/path/to/config", configPath,
		"/path/to/socket", socketPath,
	).Replace(unitTemplate)
}
