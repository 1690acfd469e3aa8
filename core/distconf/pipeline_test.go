package distconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pipelineJSON = `{
    "connectors": {
        "sentseg": {
            "protocol": "http",
            "url": "http://sentseg:8011/sentseg"
        },
        "dff_program_y": {
            "protocol": "python",
            "class_name": "DFFConnector"
        }
    },
    "services": {
        "last_chance_service": {
            "connector": {
                "protocol": "python",
                "class_name": "PredefinedTextConnector"
            },
            "state_manager_method": "add_bot_utterance_last_chance"
        },
        "timeout_service": {
            "connector": {
                "protocol": "python",
                "class_name": "PredefinedTextConnector"
            }
        },
        "annotators": {
            "sentseg": {
                "connector": "connectors.sentseg",
                "dialog_formatter": "state_formatters.dp_formatters:preproc_last_human_utt_dialog"
            },
            "spelling_preprocessing": {
                "connector": {
                    "protocol": "http",
                    "url": "http://spelling-preprocessing:8074/respond"
                }
            }
        },
        "skills": {
            "dummy_skill": {
                "connector": {
                    "protocol": "python",
                    "class_name": "connectors:DummySkillConnector"
                }
            },
            "dff_program_y_skill": {
                "connector": "connectors.dff_program_y"
            },
            "dff_intent_responder_skill": {
                "connector": {
                    "protocol": "http",
                    "url": "http://dff-intent-responder-skill:8012/respond"
                }
            }
        },
        "response_selectors": {
            "response_selector": {
                "connector": {
                    "protocol": "http",
                    "url": "http://convers-evaluation-selector:8009/respond"
                }
            }
        }
    }
}`

func writePipeline(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline_conf.json")
	require.NoError(t, os.WriteFile(path, []byte(pipelineJSON), 0o644))
	return path
}

func TestLoadPipeline(t *testing.T) {
	p, err := LoadPipeline(writePipeline(t))
	require.NoError(t, err)

	assert.Len(t, p.Connectors, 2)
	assert.Equal(t, "http://sentseg:8011/sentseg", p.Connectors["sentseg"].URL)

	require.NotNil(t, p.Services.LastChanceService)
	require.NotNil(t, p.Services.TimeoutService)
	assert.Nil(t, p.Services.BotAnnotatorSelector)
	assert.Nil(t, p.Services.PostAnnotators)
	assert.Len(t, p.Services.Annotators, 2)
	assert.Len(t, p.Services.Skills, 3)

	// connector as string reference
	sentseg := p.Services.Annotators["sentseg"]
	assert.Equal(t, "connectors.sentseg", sentseg.ConnectorRef)
	assert.Nil(t, sentseg.Connector)
	assert.Empty(t, sentseg.ConnectorURL())

	// inline connector
	spelling := p.Services.Annotators["spelling_preprocessing"]
	require.NotNil(t, spelling.Connector)
	assert.Equal(t, "http://spelling-preprocessing:8074/respond", spelling.ConnectorURL())
}

func TestPipelineRoundTrip(t *testing.T) {
	p, err := LoadPipeline(writePipeline(t))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "pipeline_conf.json")
	_, err = p.ToPath(out, false)
	require.NoError(t, err)

	again, err := LoadPipeline(out)
	require.NoError(t, err)
	assert.Equal(t, p, again)
}

func TestPipelineFlattened(t *testing.T) {
	p, err := LoadPipeline(writePipeline(t))
	require.NoError(t, err)

	flat := p.Services.Flattened()
	assert.Len(t, flat, 8)
	assert.Contains(t, flat, "last_chance_service")
	assert.Contains(t, flat, "dummy_skill")
	assert.Contains(t, flat, "response_selector")
}

func TestPipelineContainerNames(t *testing.T) {
	p, err := LoadPipeline(writePipeline(t))
	require.NoError(t, err)

	names := p.ContainerNames()
	assert.ElementsMatch(t, []string{
		"spelling-preprocessing",
		"dff-intent-responder-skill",
		"convers-evaluation-selector",
	}, names)

	// recomputed on demand: a second pass yields the same result
	assert.ElementsMatch(t, names, p.ContainerNames())
}

func TestDiscoverHostPortEndpoint(t *testing.T) {
	p, err := LoadPipeline(writePipeline(t))
	require.NoError(t, err)

	host, port, endpoint, err := p.DiscoverHostPortEndpoint("spelling_preprocessing")
	require.NoError(t, err)
	assert.Equal(t, "spelling-preprocessing", host)
	assert.Equal(t, "8074", port)
	assert.Equal(t, "respond", endpoint)

	// a service without a URL resolves to empty segments
	host, port, endpoint, err = p.DiscoverHostPortEndpoint("sentseg")
	require.NoError(t, err)
	assert.Empty(t, host)
	assert.Empty(t, port)
	assert.Empty(t, endpoint)

	_, _, _, err = p.DiscoverHostPortEndpoint("nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "not found in pipeline")
}

func TestPipelineFilterServices(t *testing.T) {
	p, err := LoadPipeline(writePipeline(t))
	require.NoError(t, err)

	filtered := p.FilterServices([]string{
		"sentseg",
		"dff-intent-responder-skill",
		"dff-program-y-skill",
		"dummy-skill",
	}, nil)

	// connectors match by URL host
	assert.Len(t, filtered.Connectors, 1)
	assert.Contains(t, filtered.Connectors, "sentseg")

	// URL-bearing services match by host
	assert.Contains(t, filtered.Services.Skills, "dff_intent_responder_skill")
	assert.NotContains(t, filtered.Services.Annotators, "spelling_preprocessing")

	// connector-less services match by dash-normalized name
	assert.Contains(t, filtered.Services.Skills, "dff_program_y_skill")
	assert.Contains(t, filtered.Services.Annotators, "sentseg")

	// an inline connector without a URL never matches, even by name
	assert.NotContains(t, filtered.Services.Skills, "dummy_skill")

	// singletons always survive
	assert.NotNil(t, filtered.Services.LastChanceService)
	assert.NotNil(t, filtered.Services.TimeoutService)

	// absent categories stay absent
	assert.Nil(t, filtered.Services.PostAnnotators)

	// exclusion applies to host-matched entries
	excluded := p.FilterServices(
		[]string{"sentseg", "dff-intent-responder-skill"},
		[]string{"dff-intent-responder-skill"},
	)
	assert.NotContains(t, excluded.Services.Skills, "dff_intent_responder_skill")
}

func TestPipelineFilterIdempotence(t *testing.T) {
	p, err := LoadPipeline(writePipeline(t))
	require.NoError(t, err)

	include := []string{"sentseg", "dff-program-y-skill"}
	once := p.FilterServices(include, nil)
	twice := once.FilterServices(include, nil)
	assert.Equal(t, once, twice)
}

func TestLoadPipelineErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadPipeline(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, ErrNotFound)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = LoadPipeline(bad)
	assert.ErrorIs(t, err, ErrParse)

	noServices := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(noServices, []byte(`{"connectors": {}}`), 0o644))
	_, err = LoadPipeline(noServices)
	assert.ErrorIs(t, err, ErrSchema)

	badShape := filepath.Join(dir, "shape.json")
	require.NoError(t, os.WriteFile(badShape, []byte(`{"services": {"skills": []}}`), 0o644))
	_, err = LoadPipeline(badShape)
	assert.ErrorIs(t, err, ErrSchema)
}
