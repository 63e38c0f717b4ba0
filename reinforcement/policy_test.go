package reinforcement

import (
	"errors"
	"math/rand"
	"testing"

	. "wastegrid/grid_world"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPolicies(t *testing.T) {
	Convey("The oracle without exploration completes every variant", t, func() {
		for _, variant := range []Variant{COLLECTION, LOCATE, SORTING} {
			cfg := DefaultConfig(variant)
			cfg.RandomStart = true
			env, err := NewEnv(cfg, rand.New(rand.NewSource(3)))
			So(err, ShouldBeNil)

			rng := rand.New(rand.NewSource(4))
			oracle := OraclePolicy{}
			for episode := 0; episode < 20; episode++ {
				_, _, err := env.Reset(nil)
				So(err, ShouldBeNil)

				terminated := false
				for !env.Done() {
					_, _, terminated, _, _ = env.Step(oracle.Act(env, rng))
				}
				So(terminated, ShouldBeTrue)
				So(env.Steps(), ShouldBeLessThan, cfg.MaxSteps)
			}
		}
	})

	Convey("The oracle never takes an invalid action", t, func() {
		env, err := NewEnv(DefaultConfig(SORTING), rand.New(rand.NewSource(5)))
		So(err, ShouldBeNil)
		rng := rand.New(rand.NewSource(6))
		for !env.Done() {
			_, _, _, _, info := env.Step(OraclePolicy{}.Act(env, rng))
			So(info.Event, ShouldNotBeIn, EVENT_INVALID_ACTION, EVENT_INVALID_PICKUP, EVENT_INVALID_DROP, EVENT_WRONG_BIN)
		}
	})

	Convey("An exploring oracle only plays actions of the variant", t, func() {
		env, err := NewEnv(DefaultConfig(LOCATE), nil)
		So(err, ShouldBeNil)
		rng := rand.New(rand.NewSource(7))
		oracle := OraclePolicy{Epsilon: 1}
		for i := 0; i < 200; i++ {
			So(oracle.Act(env, rng).IsMove(), ShouldBeTrue)
		}
	})

	Convey("The random policies draw from their action spaces", t, func() {
		env, err := NewEnv(DefaultConfig(COLLECTION), nil)
		So(err, ShouldBeNil)
		rng := rand.New(rand.NewSource(8))

		seen := map[Action]bool{}
		for i := 0; i < 500; i++ {
			seen[RandomPolicy{}.Act(env, rng)] = true
			So(RandomMovesPolicy{}.Act(env, rng).IsMove(), ShouldBeTrue)
		}
		So(len(seen), ShouldEqual, len(AllActions))
	})

	Convey("Policies are built by name", t, func() {
		p, err := NewPolicy(PolicyConfig{})
		So(err, ShouldBeNil)
		So(p, ShouldHaveSameTypeAs, RandomMovesPolicy{})

		p, err = NewPolicy(PolicyConfig{Name: "random"})
		So(err, ShouldBeNil)
		So(p, ShouldHaveSameTypeAs, RandomPolicy{})

		p, err = NewPolicy(PolicyConfig{Name: "oracle", Epsilon: 0.3})
		So(err, ShouldBeNil)
		So(p, ShouldResemble, OraclePolicy{Epsilon: 0.3})

		_, err = NewPolicy(PolicyConfig{Name: "telepathy"})
		So(errors.Is(err, ErrUnknownPolicy), ShouldBeTrue)
	})
}
