package supervisor

import (
	"fmt"
	"strings"

	"github.com/artpar/deployer/internal/core/env"
)

// =============================================================================
// Unit File Rendering
// =============================================================================

// Log rotation policy for every generated unit.
const (
	logMaxBytes = "50MB"
	logBackups  = 5
)

// RenderProgram renders a ProgramUnit as a supervisor [program:x] stanza.
func RenderProgram(u ProgramUnit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[program:%s]\n", u.Name)
	fmt.Fprintf(&b, "command=%s\n", u.Command)
	fmt.Fprintf(&b, "directory=%s\n", u.Directory)
	fmt.Fprintf(&b, "user=%s\n", u.User)
	fmt.Fprintf(&b, "autostart=%s\n", boolString(u.Autostart))
	fmt.Fprintf(&b, "autorestart=%s\n", boolString(u.Autorestart))
	b.WriteString("startsecs=10\n")
	b.WriteString("startretries=3\n")
	fmt.Fprintf(&b, "stdout_logfile=%s\n", u.StdoutLog)
	fmt.Fprintf(&b, "stderr_logfile=%s\n", u.StderrLog)
	fmt.Fprintf(&b, "stdout_logfile_maxbytes=%s\n", logMaxBytes)
	fmt.Fprintf(&b, "stderr_logfile_maxbytes=%s\n", logMaxBytes)
	fmt.Fprintf(&b, "stdout_logfile_backups=%d\n", logBackups)
	fmt.Fprintf(&b, "stderr_logfile_backups=%d\n", logBackups)
	fmt.Fprintf(&b, "environment=%s\n", EnvironmentString(u.Environment))
	fmt.Fprintf(&b, "numprocs=%d\n", u.NumProcs)
	if u.NumProcs > 1 {
		// Replicas need distinct process names so they do not collide.
		b.WriteString("process_name=%(program_name)s_%(process_num)02d\n")
	}
	return b.String()
}

// RenderGroup renders a GroupUnit as a supervisor [group:x] stanza.
func RenderGroup(g GroupUnit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[group:%s]\n", g.Name)
	fmt.Fprintf(&b, "programs=%s\n", strings.Join(g.Programs, ","))
	fmt.Fprintf(&b, "priority=%d\n", g.Priority)
	return b.String()
}

// EnvironmentString renders an environment map in supervisor's
// KEY="value",KEY="value" form. Keys are sorted for deterministic output
// and values have embedded double quotes escaped.
func EnvironmentString(m env.Map) string {
	pairs := make([]string, 0, len(m))
	for _, k := range m.Keys() {
		escaped := strings.ReplaceAll(m[k], `"`, `\"`)
		pairs = append(pairs, fmt.Sprintf(`%s="%s"`, k, escaped))
	}
	return strings.Join(pairs, ",")
}

func boolString(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
