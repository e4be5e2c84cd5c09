package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"omsearch/internal/domain"
)

// nonMathematicalCDs are metadata content dictionaries that pollute search
// results and are excluded from retrieval by default.
var nonMathematicalCDs = map[string]struct{}{
	"meta":        {},
	"metagrp":     {},
	"metasig":     {},
	"error":       {},
	"scscp1":      {},
	"scscp2":      {},
	"altenc":      {},
	"mathmlattr":  {},
	"sts":         {},
	"mathmltypes": {},
}

// Catalog is an in-memory, read-only view of the symbol knowledge base.
// Symbols are held in sorted-ID order; that order is the catalogue order all
// score vectors and embedding cache rows are aligned to.
type Catalog struct {
	symbols   []domain.Symbol
	index     map[string]int      // id -> position in symbols
	nameIndex map[string][]string // lowercase name -> ids
}

type knowledgeBase struct {
	Symbols map[string]domain.Symbol `json:"symbols"`
}

// Load reads a knowledge base JSON file and builds a catalog. When
// filterNonMath is true, symbols from metadata content dictionaries are
// dropped.
func Load(path string, filterNonMath bool) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base: %w", err)
	}

	var kb knowledgeBase
	if err := json.Unmarshal(data, &kb); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge base: %w", err)
	}

	symbols := make([]domain.Symbol, 0, len(kb.Symbols))
	for id, sym := range kb.Symbols {
		if sym.ID == "" {
			sym.ID = id
		}
		symbols = append(symbols, sym)
	}

	return New(symbols, filterNonMath), nil
}

// New builds a catalog from a symbol list. Symbols without a well-formed
// "cd:name" ID keep whatever CD/Name fields they carry; CD and Name are
// derived from the ID when absent.
func New(symbols []domain.Symbol, filterNonMath bool) *Catalog {
	kept := make([]domain.Symbol, 0, len(symbols))
	for _, sym := range symbols {
		if cd, name, ok := strings.Cut(sym.ID, ":"); ok {
			if sym.CD == "" {
				sym.CD = cd
			}
			if sym.Name == "" {
				sym.Name = name
			}
		}
		if filterNonMath {
			if _, excluded := nonMathematicalCDs[sym.CD]; excluded {
				continue
			}
		}
		kept = append(kept, sym)
	}

	sort.Slice(kept, func(i, j int) bool {
		return kept[i].ID < kept[j].ID
	})

	c := &Catalog{
		symbols:   kept,
		index:     make(map[string]int, len(kept)),
		nameIndex: make(map[string][]string),
	}
	for i, sym := range kept {
		c.index[sym.ID] = i
		name := strings.ToLower(sym.Name)
		if name != "" {
			c.nameIndex[name] = append(c.nameIndex[name], sym.ID)
		}
	}

	return c
}

// Symbols returns all symbols in catalogue order. Callers must not mutate
// the returned slice.
func (c *Catalog) Symbols() []domain.Symbol {
	return c.symbols
}

// Len returns the number of symbols.
func (c *Catalog) Len() int {
	return len(c.symbols)
}

// ByID looks up a symbol by its full ID.
func (c *Catalog) ByID(id string) (domain.Symbol, bool) {
	i, ok := c.index[id]
	if !ok {
		return domain.Symbol{}, false
	}
	return c.symbols[i], true
}

// NameIndex maps each lowercase symbol name to the IDs carrying it. Used by
// query expansion. Callers must not mutate the returned map.
func (c *Catalog) NameIndex() map[string][]string {
	return c.nameIndex
}
