package deployment

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteEnvTypes generates env.d.ts in dir, declaring a binding for each
// configured service and secret so handler code type-checks against the
// session's environment.
func WriteEnvTypes(dir string, cfg DeploymentConfig) error {
	w := &strings.Builder{}
	fmt.Fprintf(w, "// Generated by bkper dev. Do not edit.\n\n")
	fmt.Fprintf(w, "interface Env {\n")
	for _, service := range cfg.Services {
		fmt.Fprintf(w, "  %s: Fetcher;\n", bindingName(service))
	}
	for _, secret := range cfg.Secrets {
		fmt.Fprintf(w, "  %s: string;\n", bindingName(secret))
	}
	fmt.Fprintf(w, "}\n")
	return os.WriteFile(filepath.Join(dir, "env.d.ts"), []byte(w.String()), 0600)
}

func bindingName(name string) string {
	name = strings.ReplaceAll(name, "-", "_")
	return strings.ToUpper(name)
}

// ReadDevVars parses the .dev.vars file in dir into a map of local secret
// values. A missing file is not an error.
func ReadDevVars(dir string) (map[string]string, error) {
	path := filepath.Join(dir, ".dev.vars")
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	defer file.Close()

	vars := map[string]string{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%s: malformed line %q", path, line)
		}
		vars[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"`)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return vars, nil
}
