package stubserver

import (
	"fmt"
	"strings"

	"go.aimuz.me/labvoz/internal/types"
)

type route struct {
	keywords []string
	message  string
	url      string
}

// routes are checked in order; the first rule with a matching keyword wins.
var routes = []route{
	{[]string{"dashboard", "inicio", "home", "principal", "tablero"}, "📊 Navegando al dashboard...", "/dashboard"},
	{[]string{"laboratorios", "laboratorio", "labs", "lab"}, "🔬 Navegando a laboratorios...", "/laboratorios"},
	{[]string{"equipos", "equipo", "maquinaria", "herramientas"}, "⚙️ Navegando a equipos...", "/equipos"},
	{[]string{"inventario", "stock", "almacén", "almacen", "reactivos", "materiales"}, "📦 Navegando a inventario...", "/inventario"},
	{[]string{"reservas", "reserva", "reservaciones", "reservación"}, "📅 Navegando a reservas...", "/reservas"},
	{[]string{"usuarios", "usuario", "personas", "estudiantes"}, "👥 Navegando a usuarios...", "/usuarios"},
	{[]string{"reportes", "reporte", "informes", "estadísticas", "estadisticas"}, "📈 Navegando a reportes...", "/reportes"},
	{[]string{"configuración", "configuracion", "ajustes", "settings"}, "⚙️ Navegando a configuración...", "/configuracion"},
	{[]string{"manual", "ayuda general", "documentación", "documentacion", "guía", "guia"}, "📖 Abriendo manual de usuario...", "/ayuda"},
	{[]string{"módulos", "modulos", "funcionalidades", "características", "caracteristicas"}, "🧩 Navegando a módulos del proyecto...", "/modulos"},
	{[]string{"cerrar sesión", "cerrar sesion", "salir", "logout", "desconectar"}, "👋 Cerrando sesión...", "/logout"},
}

var helpKeywords = []string{"ayuda", "help", "comandos", "qué puedo decir", "que puedo decir", "opciones"}

const helpMessage = `🎤 Comandos de voz disponibles:

📍 NAVEGACIÓN:
• "Dashboard" o "Inicio" - Panel principal
• "Laboratorios" - Gestión de laboratorios
• "Equipos" - Gestión de equipos
• "Inventario" - Control de inventario y reactivos
• "Reservas" - Sistema de reservas
• "Usuarios" - Gestión de usuarios
• "Reportes" - Informes y estadísticas
• "Configuración" - Ajustes del sistema
• "Ayuda" - Manual de usuario
• "Módulos" - Ver funcionalidades del proyecto

🚪 SESIÓN:
• "Cerrar sesión" - Salir del sistema

💡 Tip: Puede decir variaciones como "ir a equipos", "mostrar inventario", etc.`

// Interpret maps a spoken command to the reply the backend would send.
func Interpret(command string) types.CommandResult {
	command = strings.ToLower(strings.TrimSpace(command))

	for _, r := range routes {
		if containsAny(command, r.keywords) {
			return result(r.message, true, types.ActionCodeNavigate, r.url)
		}
	}
	if containsAny(command, helpKeywords) {
		return result(helpMessage, true, "", "")
	}
	msg := fmt.Sprintf(`❌ Comando "%s" no reconocido. Diga "ayuda" para ver todos los comandos disponibles.`, command)
	return result(msg, false, "", "")
}

func result(msg string, ok bool, action, url string) types.CommandResult {
	return types.CommandResult{Message: &msg, Success: &ok, Action: action, URL: url}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
