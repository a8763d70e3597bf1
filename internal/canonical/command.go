package canonical

import (
	"path/filepath"
	"strings"
)

// TempPlaceholder replaces temp-directory-rooted argument values so that
// traces of the same logical run compare equal across executions.
const TempPlaceholder = "<temp>"

// NormalizeCommand strips a command to its path basename and builds the
// normalized argv with the basename as argv[0]. Arguments referencing
// ephemeral temp paths are replaced with TempPlaceholder.
func NormalizeCommand(command string, args []string) (string, []string) {
	base := filepath.Base(command)
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = command
	}

	argv := make([]string, 0, len(args)+1)
	argv = append(argv, base)
	for _, arg := range args {
		argv = append(argv, normalizeArg(arg))
	}
	return base, argv
}

func normalizeArg(arg string) string {
	if arg == "" {
		return arg
	}
	if strings.Contains(arg, "/tmp/") || strings.Contains(arg, `\Temp\`) || strings.Contains(arg, `\tmp\`) {
		return TempPlaceholder
	}
	return arg
}
