package langsvc

import (
	"context"
	"fmt"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/core/bindings"
	"github.com/evmcrispr/evml/core/module"
	"github.com/evmcrispr/evml/runtime/eager"
)

// CompletionKind classifies a completion item.
type CompletionKind string

const (
	KindCommand  CompletionKind = "command"
	KindHelper   CompletionKind = "helper"
	KindVariable CompletionKind = "variable"
	KindField    CompletionKind = "field"
)

// CompletionItem is one completion candidate.
type CompletionItem struct {
	Label      string         `json:"label"`
	InsertText string         `json:"insertText"`
	Kind       CompletionKind `json:"kind"`
	Snippet    bool           `json:"snippet,omitempty"` // InsertText uses ${n:name} placeholders
	Priority   int            `json:"priority"`          // lower sorts first
	Detail     string         `json:"detail,omitempty"`
}

// Sort priorities.
const (
	priorityContext = iota + 1
	priorityDefault
	priorityOther
	priorityVariable
)

// Completions returns the candidates for the word under pos, best first.
// Lines are 1-based and columns 0-based.
func (s *Service) Completions(ctx context.Context, text string, pos ast.Position) (items []CompletionItem) {
	defer s.guard("completions")

	prefix := prefixAt(lineAt(text, pos.Line), pos.Col)
	sc := scanLine(prefix)
	if sc.comment {
		return nil
	}
	res := s.analyze(ctx, text, pos)
	if res.Default == nil {
		return nil
	}

	word := fragment(prefix)
	c := newCollector()
	switch {
	case strings.Contains(word, "::"):
		i := strings.LastIndex(word, "::")
		methodItems(c, res, word[:i])
		word = word[i+2:]
	case strings.HasPrefix(word, "$"):
		variableItems(c, res)
	case strings.HasPrefix(word, "@"):
		helperItems(c, res)
	case sc.helper != "":
		variableItems(c, res)
		helperItems(c, res)
	case sc.atCommandName():
		commandItems(c, res)
	case strings.HasPrefix(word, "--"):
		if _, cmd, ok := lineCommand(res, sc); ok {
			for _, o := range cmd.Opts {
				c.add(CompletionItem{Label: "--" + o.Name, Kind: KindField, Priority: priorityContext, Detail: o.Summary})
			}
		}
	default:
		argumentItems(c, res, sc, pos)
		variableItems(c, res)
	}
	return c.ranked(word)
}

// fragment is the text between the last delimiter and the cursor.
func fragment(prefix string) string {
	i := strings.LastIndexAny(prefix, " \t(,[")
	return prefix[i+1:]
}

// lineCommand resolves the command written on the scanned line.
func lineCommand(res *eager.Result, sc lineScan) (*module.Module, *module.Command, bool) {
	mod, name := splitCommandName(sc.commandName())
	if name == "" {
		return nil, nil, false
	}
	return res.Resolve(&ast.CommandExpression{Module: mod, Name: name})
}

func commandItems(c *collector, res *eager.Result) {
	for _, name := range res.Context.CommandNames() {
		c.add(commandItem(name, res.Context.Commands[name], priorityContext))
	}
	if res.Context != res.Default {
		for _, name := range res.Default.CommandNames() {
			c.add(commandItem(name, res.Default.Commands[name], priorityDefault))
		}
	}
	for _, m := range res.Modules() {
		if m == res.Default {
			continue
		}
		for _, name := range m.CommandNames() {
			c.add(commandItem(m.BindingName()+":"+name, m.Commands[name], priorityOther))
		}
	}
}

func commandItem(label string, cmd *module.Command, priority int) CompletionItem {
	item := CompletionItem{Label: label, InsertText: label, Kind: KindCommand, Priority: priority, Detail: cmd.Summary}
	var parts []string
	n := 0
	for _, a := range cmd.Args {
		switch {
		case a.Type == "block":
			parts = append(parts, "(\n\t$0\n)")
		case a.Optional || a.Rest:
		default:
			n++
			parts = append(parts, fmt.Sprintf("${%d:%s}", n, a.Name))
		}
	}
	if len(parts) > 0 {
		item.InsertText = label + " " + strings.Join(parts, " ")
		item.Snippet = true
	}
	return item
}

func helperItems(c *collector, res *eager.Result) {
	for _, m := range res.Modules() {
		priority := priorityOther
		switch m {
		case res.Context:
			priority = priorityContext
		case res.Default:
			priority = priorityDefault
		}
		for _, name := range m.HelperNames() {
			h, isHelper := m.Helpers[name]
			if !isHelper {
				c.add(CompletionItem{Label: "@" + name, InsertText: "@" + name, Kind: KindHelper, Priority: priority, Detail: m.Name + " constant"})
				continue
			}
			item := CompletionItem{Label: "@" + name, InsertText: "@" + name, Kind: KindHelper, Priority: priority, Detail: h.Summary}
			var params []string
			for i, a := range h.Args {
				if a.Optional || a.Rest {
					break
				}
				params = append(params, fmt.Sprintf("${%d:%s}", i+1, a.Name))
			}
			if len(params) > 0 {
				item.InsertText = "@" + name + "(" + strings.Join(params, ", ") + ")"
				item.Snippet = true
			} else if len(h.Args) > 0 || h.Arity.Min > 0 {
				item.InsertText = "@" + name + "()"
			}
			c.add(item)
		}
	}
}

func variableItems(c *collector, res *eager.Result) {
	for _, b := range res.Bindings.AllBindings(bindings.Filter{Spaces: []bindings.Space{bindings.User}}) {
		c.add(CompletionItem{Label: b.Identifier, InsertText: b.Identifier, Kind: KindVariable, Priority: priorityVariable})
	}
}

func argumentItems(c *collector, res *eager.Result, sc lineScan, pos ast.Position) {
	m, cmd, ok := lineCommand(res, sc)
	if !ok || cmd.Completions == nil {
		return
	}
	index, inOption := sc.argIndex()
	if inOption {
		return
	}
	var args []ast.Node
	if res.Command != nil && res.Command.FullName() == sc.commandName() {
		args = res.Command.Args
		if len(args) > index {
			args = args[:index]
		}
	}
	req := module.CompletionRequest{ArgIndex: index, Args: args, Bindings: res.Bindings, Pos: pos}
	for _, label := range cmd.Completions(req) {
		c.add(CompletionItem{Label: label, InsertText: label, Kind: KindField, Priority: priorityContext, Detail: m.Name})
	}
}

// methodItems lists the known methods of the contract written before "::".
func methodItems(c *collector, res *eager.Result, target string) {
	if v, ok := res.Bindings.GetBindingValue(target, bindings.User); ok {
		if s, ok := v.(string); ok {
			target = s
		}
	}
	if !common.IsHexAddress(target) {
		return
	}
	v, ok := res.Bindings.GetBindingValue(common.HexToAddress(target).Hex(), bindings.ABI)
	if !ok {
		return
	}
	contract, ok := v.(*abi.ABI)
	if !ok {
		return
	}
	for _, m := range contract.Methods {
		c.add(CompletionItem{Label: m.RawName, InsertText: m.RawName + "()", Kind: KindField, Priority: priorityContext, Detail: m.Sig})
	}
}

// collector de-duplicates items by label; the first one added wins.
type collector struct {
	seen  mapset.Set
	items []CompletionItem
}

func newCollector() *collector {
	return &collector{seen: mapset.NewSet()}
}

func (c *collector) add(item CompletionItem) {
	if item.InsertText == "" {
		item.InsertText = item.Label
	}
	if c.seen.Add(item.Label) {
		c.items = append(c.items, item)
	}
}

// ranked filters the items by fuzzy match against word and orders them by
// priority, match distance and label.
func (c *collector) ranked(word string) []CompletionItem {
	if len(c.items) == 0 {
		return nil
	}
	labels := make([]string, len(c.items))
	for i, item := range c.items {
		labels[i] = item.Label
	}
	distance := map[string]int{}
	if word == "" {
		for _, l := range labels {
			distance[l] = 0
		}
	} else {
		for _, r := range fuzzy.RankFindFold(word, labels) {
			distance[r.Target] = r.Distance
		}
	}

	out := make([]CompletionItem, 0, len(distance))
	for _, item := range c.items {
		if _, ok := distance[item.Label]; ok {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if da, db := distance[a.Label], distance[b.Label]; da != db {
			return da < db
		}
		return a.Label < b.Label
	})
	return out
}
