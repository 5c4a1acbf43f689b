package dispatch

import "strings"

// Rule maps a group of keywords to a local navigation target.
type Rule struct {
	Keywords []string
	Path     string
}

// Local navigation targets served by the web application.
const (
	PathEquipment = "/equipos"
	PathInventory = "/inventario"
	PathBookings  = "/reservas"
	PathDashboard = "/dashboard"
)

// DefaultRules is the keyword table used without a session. Order matters:
// the first matching group wins.
var DefaultRules = []Rule{
	{Keywords: []string{"equipos"}, Path: PathEquipment},
	{Keywords: []string{"inventario"}, Path: PathInventory},
	{Keywords: []string{"reservas"}, Path: PathBookings},
	{Keywords: []string{"dashboard", "inicio"}, Path: PathDashboard},
}

const helpKeyword = "ayuda"

const (
	helpMessage         = "Comandos básicos: 'ir a equipos', 'ir a inventario', 'ir a reservas', 'ir a dashboard'. Para CRUD inicie sesión API."
	unrecognizedMessage = "Comando no reconocido. Inicie sesión API para más comandos."
)

// match returns the path of the first rule with a keyword contained in text.
// text must already be lower-cased.
func match(rules []Rule, text string) (string, bool) {
	for _, r := range rules {
		for _, kw := range r.Keywords {
			if strings.Contains(text, kw) {
				return r.Path, true
			}
		}
	}
	return "", false
}
