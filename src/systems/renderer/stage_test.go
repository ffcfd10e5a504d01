package renderer

import "testing"

var (
	allStages = []RenderStage{Stopped, Deferred, Ambient, Directional, LightObject, NeedsRedraw}
	allCalls  = []Call{CallStart, CallGeometry, CallAmbient, CallDirectional, CallPointLight, CallSkybox, CallLightObject, CallFinish}
)

func TestTransition(t *testing.T) {
	type key struct {
		stage RenderStage
		call  Call
	}
	type result struct {
		stage  RenderStage
		action Action
	}

	valid := map[key]result{
		{Stopped, CallStart}:           {Deferred, ActionRecord},
		{Stopped, CallFinish}:          {Stopped, ActionNone},
		{Deferred, CallGeometry}:       {Deferred, ActionRecord},
		{Deferred, CallAmbient}:        {Ambient, ActionRecord},
		{Ambient, CallAmbient}:         {Ambient, ActionSkip},
		{Ambient, CallDirectional}:     {Directional, ActionRecord},
		{Ambient, CallPointLight}:      {Directional, ActionRecord},
		{Ambient, CallSkybox}:          {Directional, ActionRecord},
		{Directional, CallDirectional}: {Directional, ActionRecord},
		{Directional, CallPointLight}:  {Directional, ActionRecord},
		{Directional, CallSkybox}:      {Directional, ActionRecord},
		{Directional, CallLightObject}: {LightObject, ActionRecord},
		{LightObject, CallLightObject}: {LightObject, ActionRecord},
		{Deferred, CallFinish}:         {Stopped, ActionSubmit},
		{Ambient, CallFinish}:          {Stopped, ActionSubmit},
		{Directional, CallFinish}:      {Stopped, ActionSubmit},
		{LightObject, CallFinish}:      {Stopped, ActionSubmit},
	}

	for _, stage := range allStages {
		for _, call := range allCalls {
			want, ok := valid[key{stage, call}]
			switch {
			case stage == NeedsRedraw:
				want = result{Stopped, ActionRebuild}
			case !ok:
				want = result{Stopped, ActionAbort}
			}

			gotStage, gotAction := Transition(stage, call)
			if gotStage != want.stage || gotAction != want.action {
				t.Errorf("Transition(%s, %s) = (%s, %s), want (%s, %s)",
					stage, call, gotStage, gotAction, want.stage, want.action)
			}
		}
	}
}

func TestStringers(t *testing.T) {
	for _, stage := range allStages {
		if stage.String() == "unknown" {
			t.Errorf("stage %d has no name", stage)
		}
	}
	for _, call := range allCalls {
		if call.String() == "unknown" {
			t.Errorf("call %d has no name", call)
		}
	}
	if RenderStage(42).String() != "unknown" {
		t.Error("out of range stage should be unknown")
	}
}
