package dist

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/deeppavlov/dreamctl/core/distconf"
)

//go:embed templates/dff_template_skill
var skillTemplates embed.FS

// AddDFFSkill scaffolds a new dff-based skill under root/skills/name from the
// embedded template tree and returns the created directory.
func (d *Dist) AddDFFSkill(name string) (string, error) {
	target := filepath.Join(d.DreamRoot, "skills", name)
	if _, err := os.Stat(target); err == nil {
		return "", fmt.Errorf("%w: %s", distconf.ErrExists, target)
	}

	tmpl, err := fs.Sub(skillTemplates, "templates/dff_template_skill")
	if err != nil {
		return "", err
	}
	if err := os.CopyFS(target, tmpl); err != nil {
		return "", err
	}
	return target, nil
}
