package reinforcement

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"wastegrid/grid_world"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ENV_PREFIX namespaces the environment overrides, e.g. WASTEGRID_WORKERS.
const ENV_PREFIX = "WASTEGRID"

//go:embed config.schema.json
var configSchemaText string

var configSchema = jsonschema.MustCompileString("config.schema.json", configSchemaText)

// ErrInvalidConfig is returned for definitions that fail schema validation or
// cannot be mapped onto an environment.
var ErrInvalidConfig = errors.New("invalid run config")

// OuterConfig is the document envelope: a kind tag and the definition it selects.
type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// RunConfig encodes the environment, reward and rollout parameters of a run.
// Keys are snake_case since viper folds the case of every key it reads.
type RunConfig struct {
	Environment EnvironmentConfig `yaml:"environment"`
	// Rewards is a key-val list of reward overrides on top of the variant preset.
	Rewards []RewardParameter `yaml:"rewards"`
	Policy  PolicyConfig      `yaml:"policy"`
	// Episodes bounds the total number of episodes across all workers. Zero means
	// episodes are generated until the context is cancelled.
	Episodes int `yaml:"episodes"`
	Workers  int `yaml:"workers"`
	// Deadline is a duration describing when to stop generating episodes.
	Deadline map[string]string `yaml:"deadline"`
}

type EnvironmentConfig struct {
	Variant     string `yaml:"variant"`
	GridSize    int    `yaml:"grid_size"`
	NumItems    int    `yaml:"num_items"`
	MaxSteps    int    `yaml:"max_steps"`
	RandomStart bool   `yaml:"random_start"`
	Start       []int  `yaml:"start"`
	Seed        int64  `yaml:"seed"`
}

type RewardParameter struct {
	Key string  `yaml:"key"`
	Val float64 `yaml:"val"`
}

type PolicyConfig struct {
	Name    string  `yaml:"name"`
	Epsilon float64 `yaml:"epsilon"`
}

// GetRewardOrDefault returns the last override of @key, else @defaultVal.
func (cfg *RunConfig) GetRewardOrDefault(key string, defaultVal float64) float64 {
	val := defaultVal
	for _, kvp := range cfg.Rewards {
		if kvp.Key == key {
			val = kvp.Val
		}
	}
	return val
}

// WithRunDeadline returns a context extended by the run deadline, if one is specified.
func (cfg *RunConfig) WithRunDeadline(
	ctx context.Context,
) (context.Context, context.CancelFunc, error) {
	if val, ok := cfg.Deadline["duration"]; ok {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: deadline: %v", ErrInvalidConfig, err)
		}
		innerCtx, cancel := context.WithTimeout(ctx, duration)
		return innerCtx, cancel, nil
	}
	defaultCtx, cancel := context.WithCancel(ctx)
	return defaultCtx, cancel, nil
}

// EnvConfig resolves the environment section over the defaults of its variant.
// Zero values keep the default.
func (cfg *RunConfig) EnvConfig() (grid_world.Config, error) {
	variant := grid_world.Variant(cfg.Environment.Variant)
	if variant == "" {
		variant = grid_world.COLLECTION
	}
	envCfg := grid_world.DefaultConfig(variant)

	ec := cfg.Environment
	if ec.GridSize != 0 {
		envCfg.GridSize = ec.GridSize
	}
	if ec.NumItems != 0 {
		envCfg.NumItems = ec.NumItems
	}
	if ec.MaxSteps != 0 {
		envCfg.MaxSteps = ec.MaxSteps
	}
	if len(ec.Start) != 0 {
		if len(ec.Start) != 2 {
			return envCfg, fmt.Errorf("%w: start must be [x, y], got %v", ErrInvalidConfig, ec.Start)
		}
		envCfg.Start = grid_world.Position{X: ec.Start[0], Y: ec.Start[1]}
	}
	envCfg.RandomStart = ec.RandomStart
	envCfg.Seed = ec.Seed
	envCfg.Rewards = cfg.resolveRewards(envCfg.Rewards)
	return envCfg, nil
}

func (cfg *RunConfig) resolveRewards(preset grid_world.Rewards) grid_world.Rewards {
	rw := preset
	for key, field := range map[string]*float64{
		"step_penalty":           &rw.StepPenalty,
		"repeat_penalty":         &rw.RepeatPenalty,
		"wall_penalty":           &rw.WallPenalty,
		"pickup_reward":          &rw.PickupReward,
		"invalid_pickup_penalty": &rw.InvalidPickupPenalty,
		"drop_reward":            &rw.DropReward,
		"invalid_drop_penalty":   &rw.InvalidDropPenalty,
		"wrong_bin_penalty":      &rw.WrongBinPenalty,
		"invalid_action_penalty": &rw.InvalidActionPenalty,
		"shaping_gain":           &rw.ShapingGain,
		"completion_bonus":       &rw.CompletionBonus,
	} {
		*field = cfg.GetRewardOrDefault(key, *field)
	}
	return rw
}

// FromYaml reads the run definition at @path. The definition is validated
// against the embedded schema before decoding, and the WASTEGRID_WORKERS,
// WASTEGRID_EPISODES and WASTEGRID_SEED environment variables override the file.
func FromYaml(path string) (*RunConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.SetEnvPrefix(ENV_PREFIX)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	var err error
	if err = vp.ReadInConfig(); err != nil {
		return nil, err
	}

	outerConfig := &OuterConfig{}
	if err = vp.Unmarshal(outerConfig); err != nil {
		return nil, err
	}
	if err = validateDef(outerConfig.Def); err != nil {
		return nil, err
	}

	var spec []byte
	if spec, err = yaml.Marshal(outerConfig.Def); err != nil {
		return nil, err
	}

	innerConfig := &RunConfig{}
	if err = yaml.Unmarshal(spec, innerConfig); err != nil {
		return nil, err
	}

	if vp.IsSet("workers") {
		innerConfig.Workers = vp.GetInt("workers")
	}
	if vp.IsSet("episodes") {
		innerConfig.Episodes = vp.GetInt("episodes")
	}
	if vp.IsSet("seed") {
		innerConfig.Environment.Seed = vp.GetInt64("seed")
	}
	return innerConfig, nil
}

// validateDef checks the decoded definition against the schema. The schema
// validator wants JSON-native values, so the definition round trips through JSON.
func validateDef(def interface{}) error {
	if def == nil {
		return fmt.Errorf("%w: missing def", ErrInvalidConfig)
	}
	raw, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	var doc interface{}
	if err = json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err = configSchema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
