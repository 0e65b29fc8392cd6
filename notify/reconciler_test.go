package notify

import "testing"

func TestSourceCheck(t *testing.T) {
	cases := []struct {
		topic   string
		wantKey string
		wantOK  bool
	}{
		{TopicTierChanged, "fighter_id", true},
		{TopicFighterSuspended, "fighter_id", true},
		{TopicDisputeOpened, "dispute_id", true},
		{TopicDisputeResolved, "dispute_id", true},
		{TopicFightReported, "record_id", true},
		{"unknown.topic", "", false},
	}

	for _, tc := range cases {
		query, key, ok := sourceCheck(tc.topic)
		if ok != tc.wantOK {
			t.Fatalf("%s: expected ok=%v got %v", tc.topic, tc.wantOK, ok)
		}
		if key != tc.wantKey {
			t.Fatalf("%s: expected key %q got %q", tc.topic, tc.wantKey, key)
		}
		if ok && query == "" {
			t.Fatalf("%s: expected non-empty source query", tc.topic)
		}
	}
}
