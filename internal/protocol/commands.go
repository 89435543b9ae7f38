package protocol

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind describes how the parameter of a wire code decodes into a semantic value.
type Kind int

const (
	// KindSwitch parameters decode to bool ("00" false, "01" true).
	KindSwitch Kind = iota
	// KindSelector parameters decode to a lowercase selector name.
	KindSelector
	// KindLevel parameters are 2-digit uppercase hex and decode to int.
	KindLevel
)

// String returns the kind name used in command listings
func (k Kind) String() string {
	switch k {
	case KindSwitch:
		return "switch"
	case KindSelector:
		return "selector"
	case KindLevel:
		return "level"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Mapping is one entry of the command table: a semantic (command, value) pair
// and its wire (code, param) encoding.
type Mapping struct {
	Command string // Semantic command, e.g. "POWER"
	Value   string // Semantic value, e.g. "ON"
	Code    string // Three-letter wire code, e.g. "PWR"
	Param   string // Wire parameter, e.g. "01"
	Decoded any    // Value carried in events: bool, string or int
	// SendOnly entries (queries, toggles, steps) are never sent by a receiver
	// and are skipped when decoding.
	SendOnly bool
}

// CommandInfo summarises one registered command for listings and help output.
type CommandInfo struct {
	Name   string
	Code   string
	Kind   Kind
	Values []string
	Max    int // Upper bound for KindLevel commands
}

type valueDef struct {
	name     string
	param    string
	decoded  any
	sendOnly bool
}

type commandDef struct {
	name   string
	code   string
	kind   Kind
	max    int
	values []valueDef
}

type semanticKey struct{ command, value string }
type wireKey struct{ code, param string }

// Table is a static bidirectional command table. It is immutable once built.
type Table struct {
	defs       []commandDef
	byName     map[string]*commandDef
	byCode     map[string]*commandDef
	bySemantic map[semanticKey]Mapping
	byWire     map[wireKey]Mapping
}

// Common values shared by several commands
var (
	query  = valueDef{name: "QUERY", param: "QSTN", sendOnly: true}
	up     = valueDef{name: "UP", param: "UP", sendOnly: true}
	down   = valueDef{name: "DOWN", param: "DOWN", sendOnly: true}
	toggle = valueDef{name: "TOGGLE", param: "TG", sendOnly: true}
	on     = valueDef{name: "ON", param: "01", decoded: true}
	off    = valueDef{name: "OFF", param: "00", decoded: false}
)

var inputValues = []valueDef{
	{name: "VIDEO1", param: "00", decoded: "video1"},
	{name: "CBL_SAT", param: "00", decoded: "video1"},
	{name: "VIDEO2", param: "01", decoded: "video2"},
	{name: "GAME", param: "02", decoded: "game"},
	{name: "AUX", param: "03", decoded: "aux"},
	{name: "VIDEO5", param: "04", decoded: "video5"},
	{name: "PC", param: "05", decoded: "pc"},
	{name: "BD_DVD", param: "10", decoded: "bd_dvd"},
	{name: "TAPE", param: "20", decoded: "tape"},
	{name: "PHONO", param: "22", decoded: "phono"},
	{name: "TV_CD", param: "23", decoded: "tv_cd"},
	{name: "FM", param: "24", decoded: "fm"},
	{name: "AM", param: "25", decoded: "am"},
	{name: "TUNER", param: "26", decoded: "tuner"},
	{name: "USB", param: "29", decoded: "usb"},
	{name: "NET", param: "2B", decoded: "net"},
	{name: "BLUETOOTH", param: "2E", decoded: "bluetooth"},
}

var commandDefs = []commandDef{
	{name: "POWER", code: "PWR", kind: KindSwitch, values: []valueDef{
		on, off, {name: "STANDBY", param: "00", decoded: false}, query,
	}},
	{name: "MUTE", code: "AMT", kind: KindSwitch, values: []valueDef{
		on, off, toggle, query,
	}},
	{name: "VOLUME", code: "MVL", kind: KindLevel, max: 100, values: []valueDef{
		up, down, {name: "UP1", param: "UP1", sendOnly: true}, {name: "DOWN1", param: "DOWN1", sendOnly: true}, query,
	}},
	{name: "INPUT", code: "SLI", kind: KindSelector, values: append(append([]valueDef{}, inputValues...), up, down, query)},
	{name: "LISTENING_MODE", code: "LMD", kind: KindSelector, values: []valueDef{
		{name: "STEREO", param: "00", decoded: "stereo"},
		{name: "DIRECT", param: "01", decoded: "direct"},
		{name: "SURROUND", param: "02", decoded: "surround"},
		{name: "FILM", param: "03", decoded: "film"},
		{name: "THX", param: "04", decoded: "thx"},
		{name: "ACTION", param: "05", decoded: "action"},
		{name: "MUSICAL", param: "06", decoded: "musical"},
		{name: "ORCHESTRA", param: "08", decoded: "orchestra"},
		{name: "UNPLUGGED", param: "09", decoded: "unplugged"},
		{name: "STUDIO_MIX", param: "0A", decoded: "studio_mix"},
		{name: "TV_LOGIC", param: "0B", decoded: "tv_logic"},
		{name: "ALL_CH_STEREO", param: "0C", decoded: "all_ch_stereo"},
		{name: "THEATER_DIMENSIONAL", param: "0D", decoded: "theater_dimensional"},
		{name: "MONO", param: "0F", decoded: "mono"},
		{name: "PURE_AUDIO", param: "11", decoded: "pure_audio"},
		{name: "FULL_MONO", param: "13", decoded: "full_mono"},
		{name: "STRAIGHT_DECODE", param: "40", decoded: "straight_decode"},
		up, down, query,
	}},
	{name: "DIMMER", code: "DIM", kind: KindSelector, values: []valueDef{
		{name: "BRIGHT", param: "00", decoded: "bright"},
		{name: "DIM", param: "01", decoded: "dim"},
		{name: "DARK", param: "02", decoded: "dark"},
		{name: "OFF", param: "03", decoded: "off"},
		{name: "LED_OFF", param: "08", decoded: "led_off"},
		{name: "TOGGLE", param: "DIM", sendOnly: true},
		query,
	}},
	{name: "SPEAKER_A", code: "SPA", kind: KindSwitch, values: []valueDef{on, off, query}},
	{name: "SPEAKER_B", code: "SPB", kind: KindSwitch, values: []valueDef{on, off, query}},
	{name: "SLEEP", code: "SLP", kind: KindLevel, max: 90, values: []valueDef{
		{name: "OFF", param: "OFF", decoded: 0}, up, query,
	}},
	{name: "ZONE2_POWER", code: "ZPW", kind: KindSwitch, values: []valueDef{
		on, off, {name: "STANDBY", param: "00", decoded: false}, query,
	}},
	{name: "ZONE2_MUTE", code: "ZMT", kind: KindSwitch, values: []valueDef{on, off, toggle, query}},
	{name: "ZONE2_VOLUME", code: "ZVL", kind: KindLevel, max: 100, values: []valueDef{up, down, query}},
	{name: "ZONE2_INPUT", code: "SLZ", kind: KindSelector, values: append(append([]valueDef{}, inputValues...),
		valueDef{name: "OFF", param: "7F", decoded: "off"}, up, down, query)},
}

// DefaultTable is the command table used by the package-level lookups.
var DefaultTable = newTable(commandDefs)

// newTable indexes command definitions in both directions. When several
// semantic values share a wire parameter, the first one registered is the one
// reported when decoding.
func newTable(defs []commandDef) *Table {
	t := &Table{
		defs:       defs,
		byName:     make(map[string]*commandDef, len(defs)),
		byCode:     make(map[string]*commandDef, len(defs)),
		bySemantic: make(map[semanticKey]Mapping),
		byWire:     make(map[wireKey]Mapping),
	}

	for i := range t.defs {
		def := &t.defs[i]
		t.byName[def.name] = def
		t.byCode[def.code] = def

		for _, v := range def.values {
			m := Mapping{
				Command:  def.name,
				Value:    v.name,
				Code:     def.code,
				Param:    v.param,
				Decoded:  v.decoded,
				SendOnly: v.sendOnly,
			}
			t.bySemantic[semanticKey{def.name, v.name}] = m
			if v.sendOnly {
				continue
			}
			wk := wireKey{def.code, v.param}
			if _, exists := t.byWire[wk]; !exists {
				t.byWire[wk] = m
			}
		}
	}

	return t
}

// LookupWire returns the wire code and parameter for a semantic command.
// Matching is case-sensitive. Level commands also accept a decimal value
// within their range, e.g. ("VOLUME", "35") -> ("MVL", "23").
func (t *Table) LookupWire(command, value string) (code, param string, err error) {
	if m, ok := t.bySemantic[semanticKey{command, value}]; ok {
		return m.Code, m.Param, nil
	}

	def, ok := t.byName[command]
	if ok && def.kind == KindLevel {
		if n, ok := parseDecimal(value); ok && n <= def.max {
			return def.code, fmt.Sprintf("%02X", n), nil
		}
	}

	return "", "", fmt.Errorf("%w: %s %s", ErrUnknownCommand, command, value)
}

// LookupSemantic decodes a wire code and parameter into its table mapping.
func (t *Table) LookupSemantic(code, param string) (Mapping, error) {
	if m, ok := t.byWire[wireKey{code, param}]; ok {
		return m, nil
	}

	def, ok := t.byCode[code]
	if ok && def.kind == KindLevel {
		if n, ok := parseLevelParam(param); ok && n <= def.max {
			return Mapping{
				Command: def.name,
				Value:   strconv.Itoa(n),
				Code:    def.code,
				Param:   param,
				Decoded: n,
			}, nil
		}
	}

	return Mapping{}, fmt.Errorf("%w: %s%s", ErrUnrecognizedMessage, code, param)
}

// KnownCode reports whether code is registered.
func (t *Table) KnownCode(code string) bool {
	_, ok := t.byCode[code]
	return ok
}

// Codes returns every registered wire code, sorted.
func (t *Table) Codes() []string {
	codes := make([]string, 0, len(t.byCode))
	for code := range t.byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// CommandForCode returns the semantic command name for a wire code.
func (t *Table) CommandForCode(code string) (string, bool) {
	def, ok := t.byCode[code]
	if !ok {
		return "", false
	}
	return def.name, true
}

// Commands lists registered commands in registration order.
func (t *Table) Commands() []CommandInfo {
	infos := make([]CommandInfo, 0, len(t.defs))
	for _, def := range t.defs {
		info := CommandInfo{
			Name: def.name,
			Code: def.code,
			Kind: def.kind,
			Max:  def.max,
		}
		for _, v := range def.values {
			info.Values = append(info.Values, v.name)
		}
		infos = append(infos, info)
	}
	return infos
}

// LookupWire looks up a semantic command in DefaultTable.
func LookupWire(command, value string) (code, param string, err error) {
	return DefaultTable.LookupWire(command, value)
}

// LookupSemantic looks up a wire code and parameter in DefaultTable.
func LookupSemantic(code, param string) (Mapping, error) {
	return DefaultTable.LookupSemantic(code, param)
}

// parseDecimal accepts plain ASCII digits only (no sign, no spaces).
func parseDecimal(s string) (int, bool) {
	if s == "" || len(s) > 3 {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// parseLevelParam accepts the 2-digit uppercase hex receivers send.
func parseLevelParam(s string) (int, bool) {
	if len(s) != 2 || strings.ToUpper(s) != s {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, false
	}
	return int(n), true
}
