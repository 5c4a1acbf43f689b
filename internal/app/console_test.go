package app

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.aimuz.me/labvoz/internal/types"
)

func newTestConsole(t *testing.T) (*Console, *bytes.Buffer, *[]string) {
	t.Helper()
	var out bytes.Buffer
	var opened []string
	c := NewConsole(&out, func(path string) string { return "http://lab.local" + path })
	c.open = func(url string) error {
		opened = append(opened, url)
		return nil
	}
	return c, &out, &opened
}

func TestConsole_Show(t *testing.T) {
	c, out, _ := newTestConsole(t)

	c.Show(types.Notification{ID: "1", Message: "Sesión API iniciada", Severity: types.SeveritySuccess})
	c.Show(types.Notification{ID: "2", Message: "sin estilo", Severity: types.Severity("raro")})

	assert.Contains(t, out.String(), "Sesión API iniciada")
	assert.Contains(t, out.String(), "[success]")
	assert.Contains(t, out.String(), "sin estilo")
}

func TestConsole_Navigate(t *testing.T) {
	c, out, opened := newTestConsole(t)

	require.NoError(t, c.Navigate("/equipos"))
	assert.Equal(t, []string{"http://lab.local/equipos"}, *opened)
	assert.Contains(t, out.String(), "http://lab.local/equipos")

	c.open = func(string) error { return errors.New("no browser") }
	assert.Error(t, c.Navigate("/reservas"))
}

func TestConsole_Prompt(t *testing.T) {
	c, out, _ := newTestConsole(t)
	p := c.Prompt()

	assert.False(t, c.Prompting())
	p.Show()
	assert.True(t, c.Prompting())
	assert.Contains(t, out.String(), "Inicia sesión")

	p.Focus()
	assert.Contains(t, out.String(), "ID de usuario:")

	p.Hide()
	assert.False(t, c.Prompting())
}

func TestConsole_Emit(t *testing.T) {
	c, out, _ := newTestConsole(t)

	c.Emit(EventListening, true)
	c.Emit(EventListening, false)
	c.Emit(EventSessionStatus, "API: conectado")
	c.Emit("unknown", 1)

	assert.Contains(t, out.String(), "micrófono activo")
	assert.Contains(t, out.String(), "micrófono inactivo")
	assert.Contains(t, out.String(), "API: conectado")
}
