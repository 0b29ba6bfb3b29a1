// Package logfields defines canonical log field name constants to avoid drift across packages.
package logfields

import "log/slog"

const (
	KeyService       = "service"
	KeyRequirement   = "requirement"
	KeyPath          = "path"
	KeySchemaVersion = "schema_version"
	KeyServiceCount  = "service_count"
	KeyOp            = "op"
	KeyDurationMS    = "duration_ms"
	KeyError         = "error"
	KeyMethod        = "method"
	KeyStatus        = "status"
	KeyUserAgent     = "user_agent"
	KeyRemoteAddr    = "remote_addr"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Service(name string) slog.Attr    { return slog.String(KeyService, name) }
func Requirement(r string) slog.Attr   { return slog.String(KeyRequirement, r) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func SchemaVersion(v string) slog.Attr { return slog.String(KeySchemaVersion, v) }
func ServiceCount(n int) slog.Attr     { return slog.Int(KeyServiceCount, n) }
func Op(op string) slog.Attr           { return slog.String(KeyOp, op) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Method(m string) slog.Attr        { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr        { return slog.Int(KeyStatus, code) }
func UserAgent(ua string) slog.Attr    { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(addr string) slog.Attr { return slog.String(KeyRemoteAddr, addr) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
