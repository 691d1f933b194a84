package affinity

import (
	"errors"
	"testing"
)

func TestValidateHandleRejectsUnknownHandle(t *testing.T) {
	if err := validateHandle("npc.explode_modifier"); err == nil {
		t.Error("expected an error for a handle outside the allowlist")
	}
	if err := validateHandle("room.travel_time_modifier"); err != nil {
		t.Errorf("allowlisted handle rejected: %v", err)
	}
	if err := validateHandle(""); err != nil {
		t.Errorf("empty handle should be allowed (no-op), got %v", err)
	}
}

func TestValidateHandleCountRejectsMoreThanTwo(t *testing.T) {
	if err := validateHandleCount("room.travel_time_modifier", "room.redirect_target"); err != nil {
		t.Errorf("two handles should be valid, got %v", err)
	}
	if err := validateHandleCount("room.travel_time_modifier", "room.redirect_target", "npc.aggro_radius_modifier"); err == nil {
		t.Error("expected an error for three handles")
	}
}

func TestValidateTellRejectsNumbersAndPercents(t *testing.T) {
	if err := validateTell("the path winds 30% longer than before"); err == nil {
		t.Error("expected rejection for a percentage")
	}
	if err := validateTell("it feels +5 warmer somehow"); err == nil {
		t.Error("expected rejection for a signed number")
	}
}

func TestValidateTellRejectsMeterWords(t *testing.T) {
	if err := validateTell("your affinity with this place has shifted"); err == nil {
		t.Error("expected rejection for the word affinity")
	}
	if err := validateTell("Reputation: improving"); err == nil {
		t.Error("expected rejection for a reputation label")
	}
}

func TestValidateTellRejectsSpeechVerbs(t *testing.T) {
	if err := validateTell("the forest whispers a warning"); err == nil {
		t.Error("expected rejection for an entity speech verb")
	}
}

func TestValidateTellRejectsCauseEffectWording(t *testing.T) {
	if err := validateTell("the path grows longer because you killed the merchant"); err == nil {
		t.Error("expected rejection for explicit cause-effect wording")
	}
}

func TestValidateTellAllowsAmbientDescription(t *testing.T) {
	if err := validateTell("the path seems to wind longer than it should"); err != nil {
		t.Errorf("an ambient tell was rejected: %v", err)
	}
}

func TestValidateValuationProfileRejectsOutOfRangeWeights(t *testing.T) {
	if err := validateValuationProfile(map[string]float64{"gift.given": 1.5}); err == nil {
		t.Error("expected rejection for a weight above 1")
	}
	if err := validateValuationProfile(map[string]float64{"combat.killed_npc": -1.0}); err != nil {
		t.Errorf("boundary weight -1.0 should be valid, got %v", err)
	}
}

func TestValidateAffordanceDefinitionPropagatesHandleAndTellErrors(t *testing.T) {
	def := &AffordanceDefinition{
		Key:          "pathing",
		Handles:      []string{"room.travel_time_modifier"},
		HostileTells: []string{"the path says it dislikes you"},
	}
	err := validateAffordanceDefinition(def)
	if err == nil {
		t.Fatal("expected an error from an entity-speech tell")
	}
	if !errors.Is(err, ErrValidation) {
		t.Errorf("error does not wrap ErrValidation: %v", err)
	}
}
