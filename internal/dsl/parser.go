package dsl

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	headerRe = regexp.MustCompile(`^(entity|abstract)\s+(\w+)\s*:\s*(.*)$`)
	fieldRe  = regexp.MustCompile(`^\s*([\w_]+):\s*([^\s#]+)(.*)$`)
	enumRe   = regexp.MustCompile(`^enum\[(.*)\]$`)
	targetRe = regexp.MustCompile(`^(ref|link|list|set)\[([A-Za-z0-9_]+)\]$`)
)

// splitOptionTokens делит "k=v k2='v 2'" на токены, не рвёт по пробелам внутри кавычек и [...]
func splitOptionTokens(s string) []string {
	var out []string
	var buf []rune
	inSingle, inDouble := false, false
	bracketDepth := 0

	flush := func() {
		if len(buf) > 0 {
			out = append(out, string(buf))
			buf = buf[:0]
		}
	}

	for _, r := range s {
		switch r {
		case '\'':
			if !inDouble && bracketDepth == 0 {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle && bracketDepth == 0 {
				inDouble = !inDouble
			}
		case '[':
			if !inSingle && !inDouble {
				bracketDepth++
			}
		case ']':
			if !inSingle && !inDouble && bracketDepth > 0 {
				bracketDepth--
			}
		case ' ', '\t', ',':
			if !inSingle && !inDouble && bracketDepth == 0 {
				flush()
				continue
			}
		}
		buf = append(buf, r)
	}
	flush()
	return out
}

// parseOptions превращает токены в map: флаг без значения → "true".
func parseOptions(raw string) map[string]string {
	opts := map[string]string{}
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	for _, tok := range splitOptionTokens(strings.TrimSpace(raw)) {
		if !strings.Contains(tok, "=") {
			opts[strings.ToLower(tok)] = "true"
			continue
		}
		kv := strings.SplitN(tok, "=", 2)
		k := strings.ToLower(strings.TrimSpace(kv[0]))
		v := strings.TrimSpace(kv[1])
		if len(v) >= 2 {
			if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
				v = v[1 : len(v)-1]
			}
		}
		if k != "" {
			opts[k] = v
		}
	}
	return opts
}

// Parse читает DSL из r. file используется только в сообщениях об ошибках.
func Parse(r io.Reader, file string) ([]*Entity, error) {
	var entities []*Entity
	var current *Entity

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if m := headerRe.FindStringSubmatch(line); m != nil {
			if current != nil {
				entities = append(entities, current)
			}
			current = &Entity{ID: m[2], Abstract: m[1] == "abstract", File: file, Line: lineNo}
			for k, v := range parseOptions(m[3]) {
				switch k {
				case "name":
					current.Name = v
				case "extends":
					current.Extends = v
				default:
					return nil, fmt.Errorf("%s:%d: unknown entity option %q", file, lineNo, k)
				}
			}
			continue
		}
		if current == nil {
			return nil, fmt.Errorf("%s:%d: field outside of entity block", file, lineNo)
		}

		m := fieldRe.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("%s:%d: cannot parse %q", file, lineNo, line)
		}
		name, rawType, tail := m[1], m[2], m[3]

		// склейка enum[a, b] с пробелами внутри скобок
		if strings.HasPrefix(rawType, "enum[") && !strings.Contains(rawType, "]") {
			if idx := strings.Index(tail, "]"); idx >= 0 {
				rawType += tail[:idx+1]
				tail = tail[idx+1:]
			}
		}

		f := Field{Name: name, Type: strings.ToLower(rawType), Options: parseOptions(tail), Line: lineNo}
		if mm := enumRe.FindStringSubmatch(rawType); mm != nil {
			f.Type = "enum"
			inside := strings.TrimSpace(mm[1])
			if strings.HasPrefix(inside, "@") {
				f.EnumCatalog = strings.TrimSpace(inside[1:])
			} else {
				for _, p := range strings.Split(inside, ",") {
					if s := strings.Trim(strings.TrimSpace(p), `"'`); s != "" {
						f.Enum = append(f.Enum, s)
					}
				}
			}
		} else if mm := targetRe.FindStringSubmatch(rawType); mm != nil {
			f.Type = mm[1]
			f.Target = mm[2]
		}
		current.Fields = append(current.Fields, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if current != nil {
		entities = append(entities, current)
	}
	return entities, nil
}

// LoadEntities читает один .dsl файл.
func LoadEntities(path string) ([]*Entity, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Parse(file, path)
}

// LoadAllEntities обходит root и собирает блоки из всех *.dsl по идентификатору.
func LoadAllEntities(root string) (map[string]*Entity, error) {
	result := make(map[string]*Entity)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".dsl") {
			return nil
		}

		ents, err := LoadEntities(path)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		for _, e := range ents {
			if prev, exists := result[e.ID]; exists {
				return fmt.Errorf("duplicate entity %q (%s:%d and %s:%d)", e.ID, prev.File, prev.Line, e.File, e.Line)
			}
			result[e.ID] = e
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// IDs — идентификаторы неабстрактных блоков, отсортированные.
func IDs(entities map[string]*Entity) []string {
	out := make([]string, 0, len(entities))
	for id, e := range entities {
		if !e.Abstract {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
