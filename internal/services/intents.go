package services

import (
	"context"
	"strings"
)

// stepHandler handles one message for a step and returns the reply text.
// An empty reply sends nothing.
type stepHandler func(ctx context.Context, t *turn) (string, error)

// intent pairs a text predicate with the handler that runs when it matches.
// Intents are evaluated in order; the first match wins.
type intent struct {
	name   string
	match  func(text string) bool
	handle stepHandler
}

func matchIntent(intents []intent, text string) (intent, bool) {
	for _, in := range intents {
		if in.match(text) {
			return in, true
		}
	}
	return intent{}, false
}

// normalizeInput lowercases and trims surrounding whitespace and punctuation
func normalizeInput(text string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(text)), " \t\r\n.!¡?¿")
}

func exact(words ...string) func(string) bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return func(text string) bool { return set[text] }
}

func contains(words ...string) func(string) bool {
	return func(text string) bool {
		for _, w := range words {
			if strings.Contains(text, w) {
				return true
			}
		}
		return false
	}
}

func anyOf(preds ...func(string) bool) func(string) bool {
	return func(text string) bool {
		for _, p := range preds {
			if p(text) {
				return true
			}
		}
		return false
	}
}

// Keyword sets shared by several steps
var (
	isGreeting = exact("hola", "hello", "hi", "hey", "start", "inicio", "buenas",
		"buenos dias", "buenos días", "buenas tardes", "buenas noches")
	isCancel       = exact("cancel", "cancelar", "salir", "exit", "stop")
	isAdminKeyword = exact("admin", "gestion", "gestión", "panel")

	isAffirmative = exact("si", "sí", "s", "yes", "y", "ok", "okay", "dale", "claro",
		"confirmar", "confirm", "1")
	isNegative = exact("no", "n", "nope", "listo", "terminar", "done", "2")

	wantsCategories = anyOf(exact("1"), contains("menu", "menú", "carta", "producto", "categor"))
	wantsOrder      = anyOf(exact("2"), contains("pedido", "pedir", "order", "ordenar", "comprar"))
	wantsContact    = anyOf(exact("3"), contains("contact", "horario", "ubicacion", "ubicación", "direccion", "dirección", "hours"))
	wantsHelp       = anyOf(exact("4"), contains("help", "ayuda"))

	wantsAll  = exact("all", "todos", "todo")
	wantsBack = exact("back", "volver", "atras", "atrás", "regresar")

	wantsPickup   = anyOf(exact("1"), contains("recoger", "pickup", "pick up", "local", "sucursal"))
	wantsDelivery = anyOf(exact("2"), contains("domicilio", "delivery", "envio", "envío", "entrega"))
)
