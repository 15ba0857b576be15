package quote

import "strings"

// Categories assigned when a record does not carry one.
const (
	CategoryStoicism    = "Stoicism"
	CategoryPreSocratic = "Pre-Socratic"
	CategoryPlatonic    = "Platonic"
	CategoryPeripatetic = "Peripatetic"
	CategoryClassics    = "Classics"
)

type categoryRule struct {
	category string
	authors  []string
}

// categoryRules are checked in order; the first matching substring wins.
var categoryRules = []categoryRule{
	{CategoryStoicism, []string{"marcus aurelius", "seneca", "epictetus", "zeno"}},
	{CategoryPreSocratic, []string{"heraclitus", "diogenes"}},
	{CategoryPlatonic, []string{"socrates", "plato"}},
	{CategoryPeripatetic, []string{"aristotle"}},
}

// InferCategory maps an author to a school of thought by case-insensitive
// substring match.
func InferCategory(author string) string {
	a := strings.ToLower(author)
	for _, rule := range categoryRules {
		for _, name := range rule.authors {
			if strings.Contains(a, name) {
				return rule.category
			}
		}
	}
	return CategoryClassics
}
