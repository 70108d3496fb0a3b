package extract

// Built-in rules for the two shipped jobs. Configuration may override them.

// HeadlineRule reads bloomberg.com/markets story package headlines.
func HeadlineRule(source string) Rule {
	return Rule{
		Name:      "headlines",
		Container: "h3.story-package-module__story__headline",
		Fields: []Field{
			{Name: "content", Selector: "a.story-package-module__story__headline-link"},
		},
		Static: map[string]string{"source": source},
	}
}

// FareRule reads kayak result cards. Every card must expose a price and a
// provider; static carries the search parameters copied into each record.
func FareRule(static map[string]string) Rule {
	return Rule{
		Name:      "fares",
		Container: "div.multibook-dropdown",
		Fields: []Field{
			{Name: "price", Selector: "span.price-text", Clean: []string{"strip_currency", "strip_thousands"}},
			{Name: "provider", Selector: "span.providerName.option-text"},
		},
		Static: static,
	}
}
