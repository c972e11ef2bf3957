package identity

// Word lists for adjective-noun handle generation. Kept short, friendly and
// free of anything that could read as an insult when paired randomly.

var handleAdjectives = []string{
	"amber", "bold", "brave", "bright", "calm", "cheery", "clever", "cosmic",
	"cozy", "crisp", "curious", "daring", "eager", "fable", "gentle", "glad",
	"golden", "happy", "hazel", "humble", "jolly", "keen", "kind", "lively",
	"lucky", "mellow", "merry", "misty", "noble", "quiet", "rapid", "rustic",
	"silver", "snowy", "solar", "sunny", "swift", "tidal", "velvet", "wise",
}

var handleNouns = []string{
	"acorn", "badger", "beacon", "birch", "breeze", "brook", "cedar", "cliff",
	"comet", "coral", "crane", "dune", "ember", "falcon", "fern", "finch",
	"fox", "glade", "harbor", "heron", "lark", "lantern", "maple", "meadow",
	"orbit", "otter", "pebble", "pine", "raven", "reef", "ridge", "river",
	"sparrow", "spruce", "summit", "thistle", "tide", "willow", "wren", "zephyr",
}
