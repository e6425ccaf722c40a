// Package reference — справочники значений enum из YAML.
package reference

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnumDirectory описывает один справочник типа enum.
type EnumDirectory struct {
	Name  string     `yaml:"name"`
	Items []EnumItem `yaml:"items"`
}

type EnumItem struct {
	Code  string `yaml:"code"`
	Name  string `yaml:"name"`
	Order int    `yaml:"order,omitempty"`
}

// Catalog — справочники по имени.
type Catalog map[string]EnumDirectory

// Values возвращает коды справочника в порядке Order (при равенстве — как в файле).
func (c Catalog) Values(name string) ([]string, error) {
	dir, ok := c[name]
	if !ok {
		return nil, fmt.Errorf("enum catalog %q not found", name)
	}
	items := append([]EnumItem(nil), dir.Items...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
	out := make([]string, 0, len(items))
	for _, it := range items {
		if code := strings.TrimSpace(it.Code); code != "" {
			out = append(out, code)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("enum catalog %q has no codes", name)
	}
	return out, nil
}

// Names — имена справочников, отсортированные.
func (c Catalog) Names() []string {
	out := make([]string, 0, len(c))
	for n := range c {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Parse разбирает один справочник; fallback — имя, если в файле его нет.
func Parse(data []byte, fallback string) (EnumDirectory, error) {
	var dir EnumDirectory
	if err := yaml.Unmarshal(data, &dir); err != nil {
		return EnumDirectory{}, err
	}
	if strings.TrimSpace(dir.Name) == "" {
		dir.Name = fallback
	}
	return dir, nil
}

// LoadEnumCatalog читает все *.yaml/*.yml из dir. Пустой dir — пустой каталог.
func LoadEnumCatalog(dir string) (Catalog, error) {
	result := Catalog{}
	if strings.TrimSpace(dir) == "" {
		return result, nil
	}
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		ext := strings.ToLower(filepath.Ext(file.Name()))
		if file.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, file.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		enumDir, err := Parse(data, strings.TrimSuffix(file.Name(), filepath.Ext(file.Name())))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if _, dup := result[enumDir.Name]; dup {
			return nil, fmt.Errorf("duplicate enum catalog %q (file: %s)", enumDir.Name, path)
		}
		result[enumDir.Name] = enumDir
	}
	return result, nil
}
