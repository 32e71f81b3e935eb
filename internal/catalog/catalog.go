// Package catalog defines the fixed set of tool kinds the service can
// recognize. The catalog is static reference data, defined once per
// deployment, and is safe for unsynchronized concurrent reads.
package catalog

// ToolDefinition describes one recognizable tool kind.
type ToolDefinition struct {
	ID          string `json:"tool_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// defaultTools is the catalog in display order. The order is part of the
// contract, IDs() must return it unchanged.
var defaultTools = []ToolDefinition{
	{"flat_screwdriver", "Отвертка плоская", "Стандартная отвертка с плоским шлицем."},
	{"phillips_screwdriver", "Отвертка крестовая", "Классическая крестовая отвертка."},
	{"offset_cross_screwdriver", "Отвертка на смещенный крест", "Отвертка с крестообразным наконечником под углом для труднодоступных мест."},
	{"brace", "Коловорот", "Ручной инструмент для сверления без электричества."},
	{"safety_pliers", "Пассатижи контровочные", "Пассатижи с удлиненными губками для работы с проволокой и контровкой."},
	{"pliers", "Пассатижи универсальные", "Универсальные пассатижи для захвата и удержания деталей."},
	{"shears", "Шэрница", "Инструмент для прецизионной обработки тонких материалов."},
	{"adjustable_wrench", "Разводной ключ", "Разводной ключ для работы с крепежом разных размеров."},
	{"oil_can_opener", "Открывашка для банок с маслом", "Приспособление для вскрытия масляных канистр."},
	{"double_ended_wrench", "Ключ рожковый/накидной 3/4", "Комбинированный ключ 3/4 дюйма с рожковой и накидной частью."},
	{"side_cutters", "Бокорезы", "Инструмент для бокового перекусывания проводов и кабелей."},
}

var lookup = func() map[string]ToolDefinition {
	m := make(map[string]ToolDefinition, len(defaultTools))
	for _, tool := range defaultTools {
		m[tool.ID] = tool
	}
	return m
}()

// Lookup returns the tool definition for the given catalog id.
func Lookup(id string) (ToolDefinition, bool) {
	tool, ok := lookup[id]
	return tool, ok
}

// Contains reports whether id is a valid catalog id.
func Contains(id string) bool {
	_, ok := lookup[id]
	return ok
}

// IDs returns all catalog ids in definition order.
func IDs() []string {
	ids := make([]string, len(defaultTools))
	for i, tool := range defaultTools {
		ids[i] = tool.ID
	}
	return ids
}

// Tools returns a copy of the full catalog in definition order.
func Tools() []ToolDefinition {
	out := make([]ToolDefinition, len(defaultTools))
	copy(out, defaultTools)
	return out
}

// Names returns the display names of all tools in definition order.
func Names() []string {
	names := make([]string, len(defaultTools))
	for i, tool := range defaultTools {
		names[i] = tool.Name
	}
	return names
}

// Size returns the number of tools in the catalog.
func Size() int {
	return len(defaultTools)
}
