package styles

// Notification symbols, ASCII-safe fallbacks included.
const (
	SymbolInfo    = "•"
	SymbolSuccess = "✓"
	SymbolWarn    = "!"
	SymbolError   = "✗"
)

// Symbol returns the rendered symbol for a notification level keyword.
// With color support the symbol is styled; otherwise it is returned as is.
func Symbol(level string) string {
	var sym string
	switch level {
	case "success":
		sym = SymbolSuccess
	case "warn":
		sym = SymbolWarn
	case "error":
		sym = SymbolError
	default:
		sym = SymbolInfo
	}

	if !Colored() {
		return sym
	}

	switch level {
	case "success":
		return SuccessStyle.Render(sym)
	case "warn":
		return WarnStyle.Render(sym)
	case "error":
		return ErrorStyle.Render(sym)
	default:
		return MutedStyle.Render(sym)
	}
}
