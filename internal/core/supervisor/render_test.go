package supervisor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/artpar/deployer/internal/core/descriptor"
	"github.com/artpar/deployer/internal/core/env"
)

// =============================================================================
// RenderProgram Tests
// =============================================================================

func renderTestUnit() ProgramUnit {
	return ProgramUnit{
		Name:        "myapp-main-web",
		Service:     "web",
		Command:     "/srv/d/myapp/qa/main/venv/bin/gunicorn app.wsgi --workers 4 --bind 0.0.0.0:8000",
		Directory:   "/srv/d/myapp/qa/main/code",
		User:        "www-data",
		Autostart:   true,
		Autorestart: true,
		NumProcs:    1,
		Environment: env.Map{"DEBUG": "false", "APP": "myapp"},
		StdoutLog:   "/srv/d/myapp/qa/main/logs/supervisor/web.log",
		StderrLog:   "/srv/d/myapp/qa/main/logs/supervisor/web_error.log",
		Kind:        descriptor.KindNetworkWorker,
		Port:        8000,
	}
}

func TestRenderProgram_Stanza(t *testing.T) {
	out := RenderProgram(renderTestUnit())

	assert.True(t, strings.HasPrefix(out, "[program:myapp-main-web]\n"))
	assert.Contains(t, out, "command=/srv/d/myapp/qa/main/venv/bin/gunicorn app.wsgi --workers 4 --bind 0.0.0.0:8000\n")
	assert.Contains(t, out, "directory=/srv/d/myapp/qa/main/code\n")
	assert.Contains(t, out, "user=www-data\n")
	assert.Contains(t, out, "autostart=true\n")
	assert.Contains(t, out, "autorestart=true\n")
	assert.Contains(t, out, "startsecs=10\n")
	assert.Contains(t, out, "startretries=3\n")
	assert.Contains(t, out, "stdout_logfile=/srv/d/myapp/qa/main/logs/supervisor/web.log\n")
	assert.Contains(t, out, "stderr_logfile=/srv/d/myapp/qa/main/logs/supervisor/web_error.log\n")
	assert.Contains(t, out, "stdout_logfile_maxbytes=50MB\n")
	assert.Contains(t, out, "stderr_logfile_maxbytes=50MB\n")
	assert.Contains(t, out, "stdout_logfile_backups=5\n")
	assert.Contains(t, out, "stderr_logfile_backups=5\n")
	assert.Contains(t, out, "numprocs=1\n")
}

func TestRenderProgram_EnvironmentSorted(t *testing.T) {
	out := RenderProgram(renderTestUnit())
	assert.Contains(t, out, `environment=APP="myapp",DEBUG="false"`+"\n")
}

func TestRenderProgram_SingleProcNoProcessName(t *testing.T) {
	out := RenderProgram(renderTestUnit())
	assert.NotContains(t, out, "process_name")
}

func TestRenderProgram_ReplicatedProcessName(t *testing.T) {
	u := renderTestUnit()
	u.NumProcs = 3
	out := RenderProgram(u)
	assert.Contains(t, out, "numprocs=3\n")
	assert.Contains(t, out, "process_name=%(program_name)s_%(process_num)02d\n")
}

func TestRenderProgram_DisabledFlags(t *testing.T) {
	u := renderTestUnit()
	u.Autostart = false
	u.Autorestart = false
	out := RenderProgram(u)
	assert.Contains(t, out, "autostart=false\n")
	assert.Contains(t, out, "autorestart=false\n")
}

// =============================================================================
// RenderGroup Tests
// =============================================================================

func TestRenderGroup_Stanza(t *testing.T) {
	out := RenderGroup(GroupUnit{
		Name:     "myapp-main",
		Programs: []string{"myapp-main-web", "myapp-main-worker"},
		Priority: GroupPriority,
	})
	assert.Equal(t, "[group:myapp-main]\nprograms=myapp-main-web,myapp-main-worker\npriority=999\n", out)
}

// =============================================================================
// EnvironmentString Tests
// =============================================================================

func TestEnvironmentString_TableDriven(t *testing.T) {
	tests := []struct {
		name string
		m    env.Map
		want string
	}{
		{"empty", env.Map{}, ""},
		{"single", env.Map{"A": "1"}, `A="1"`},
		{"sorted", env.Map{"B": "2", "A": "1"}, `A="1",B="2"`},
		{"quotes escaped", env.Map{"MSG": `say "hi"`}, `MSG="say \"hi\""`},
		{"empty value", env.Map{"BLANK": ""}, `BLANK=""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EnvironmentString(tt.m))
		})
	}
}

// =============================================================================
// Naming Tests
// =============================================================================

func TestUnitName(t *testing.T) {
	assert.Equal(t, "myapp-main-web", UnitName("myapp", "main", "web"))
	assert.Equal(t, "myapp-feature-login-web", UnitName("myapp", "feature-login", "web"))
}

func TestGroupName(t *testing.T) {
	assert.Equal(t, "myapp-main", GroupName("myapp", "main"))
}

func TestUnitFileNames(t *testing.T) {
	assert.Equal(t, "myapp-main-web.conf", UnitFileName("myapp-main-web"))
	assert.Equal(t, "myapp-main-group.conf", GroupFileName("myapp", "main"))
}
