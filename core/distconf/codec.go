package distconf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-viper/mapstructure/v2"
	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/v2"
)

// Kind identifies one of the five configuration documents of a distribution.
// Each kind fixes the default file name inside a distribution directory and
// the codec used to read and write it.
type Kind string

const (
	KindPipeline        Kind = "pipeline"
	KindComposeOverride Kind = "compose-override"
	KindComposeDev      Kind = "compose-dev"
	KindComposeProxy    Kind = "compose-proxy"
	KindComposeLocal    Kind = "compose-local"
)

// FileName returns the default file name for the document kind.
func (k Kind) FileName() string {
	switch k {
	case KindPipeline:
		return "pipeline_conf.json"
	case KindComposeOverride:
		return "docker-compose.override.yml"
	case KindComposeDev:
		return "dev.yml"
	case KindComposeProxy:
		return "proxy.yml"
	case KindComposeLocal:
		return "local.yml"
	}
	return ""
}

func (k Kind) codec() koanf.Parser {
	if k == KindPipeline {
		return kjson.Parser()
	}
	return kyaml.Parser()
}

// load reads a file and parses it into a raw nested map with the given codec.
func load(path string, codec koanf.Parser) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	data, err := codec.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}
	return data, nil
}

// dump serializes a raw nested map and writes it to path. With overwrite
// disabled the file is opened with O_EXCL so the existence check is atomic.
// The write itself is not: a failure mid-write with overwrite enabled can
// leave a truncated file behind.
func dump(data map[string]any, path string, overwrite bool, codec koanf.Parser) (string, error) {
	raw, err := codec.Marshal(data)
	if err != nil {
		return "", err
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrExists, path)
		}
		return "", err
	}
	_, werr := f.Write(raw)
	cerr := f.Close()
	if werr != nil {
		return "", werr
	}
	if cerr != nil {
		return "", cerr
	}
	return path, nil
}

// decode maps a raw mapping onto a typed struct. Fields tagged with ",remain"
// collect every key the schema does not model so they survive a round trip.
func decode(m map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(m)
}

func copyExtra(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
