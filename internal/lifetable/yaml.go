package lifetable

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/pensionlab/pencalc/internal/domain"
)

var (
	decimalZero = decimal.Zero
	decimalOne  = decimal.NewFromInt(1)
)

// fileFormat is the on-disk YAML shape: country → sex → rows.
type fileFormat struct {
	Tables map[string]map[string][]Row `yaml:"tables"`
}

// LoadFile reads a YAML life-table snapshot into a StaticProvider.
//
// Expected layout:
//
//	tables:
//	  JOR:
//	    male:
//	      - {age: 65, survivorship: 0.82, ex: 16.4}
//	      - {age: 66, survivorship: 0.80}
func LoadFile(path string) (*StaticProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read life-table file %s: %w", path, err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse life-table YAML: %w", err)
	}

	p := NewStaticProvider()
	for country, bySex := range f.Tables {
		for sexName, rows := range bySex {
			sex := domain.Sex(sexName)
			if sex != domain.Male && sex != domain.Female {
				return nil, fmt.Errorf("life-table %s: unknown sex %q", country, sexName)
			}
			for _, r := range rows {
				if r.Survivorship.LessThan(decimalZero) || r.Survivorship.GreaterThan(decimalOne) {
					return nil, fmt.Errorf("life-table %s/%s age %d: survivorship %s outside [0,1]",
						country, sexName, r.Age, r.Survivorship)
				}
			}
			p.AddTable(country, sex, rows)
		}
	}
	return p, nil
}
