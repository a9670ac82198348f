package replay

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

//go:embed demo.yaml
var demoScript []byte

// LoadScript reads a sale log from path, or the bundled demo when path is
// empty.
func LoadScript(path string) (Script, error) {
	data := demoScript
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Script{}, fmt.Errorf("%w: %w", ErrScript, err)
		}
		data = b
	}
	return ParseScript(data)
}

// ParseScript decodes and checks a YAML sale log.
func ParseScript(data []byte) (Script, error) {
	var s Script
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return Script{}, fmt.Errorf("%w: %v", ErrScript, err)
	}
	if len(s.Sales) == 0 {
		return Script{}, fmt.Errorf("%w: no sales", ErrScript)
	}
	for i, sale := range s.Sales {
		if sale.Player <= 0 || sale.Team == "" || sale.Price <= 0 {
			return Script{}, fmt.Errorf("%w: sale %d needs player, team and price", ErrScript, i+1)
		}
	}
	return s, nil
}
