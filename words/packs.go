package words

// classic is the general-purpose noun list.
var classic = []string{
	"AFRICA", "AGENT", "AIR", "ALIEN", "ALPS", "AMAZON", "AMBULANCE", "AMERICA",
	"ANGEL", "ANTARCTICA", "APPLE", "ARM", "ATLANTIS", "AUSTRALIA", "AZTEC", "BACK",
	"BALL", "BAND", "BANK", "BAR", "BARK", "BAT", "BATTERY", "BEACH",
	"BEAR", "BEAT", "BED", "BEIJING", "BELL", "BELT", "BERLIN", "BERMUDA",
	"BERRY", "BILL", "BLOCK", "BOARD", "BOLT", "BOMB", "BOND", "BOOM",
	"BOOT", "BOTTLE", "BOW", "BOX", "BRIDGE", "BRUSH", "BUCK", "BUFFALO",
	"BUG", "BUGLE", "BUTTON", "CALF", "CANADA", "CAP", "CAPITAL", "CAR",
	"CARD", "CARROT", "CASINO", "CAST", "CAT", "CELL", "CENTAUR", "CENTER",
	"CHAIR", "CHANGE", "CHARGE", "CHECK", "CHEST", "CHICK", "CHINA", "CHOCOLATE",
	"CHURCH", "CIRCLE", "CLIFF", "CLOAK", "CLUB", "CODE", "COLD", "COMIC",
	"COMPOUND", "CONCERT", "CONDUCTOR", "CONTRACT", "COOK", "COPPER", "COTTON", "COURT",
	"COVER", "CRANE", "CRASH", "CRICKET", "CROSS", "CROWN", "CYCLE", "CZECH",
	"DANCE", "DATE", "DAY", "DEATH", "DECK", "DEGREE", "DIAMOND", "DICE",
	"DINOSAUR", "DISEASE", "DOCTOR", "DOG", "DRAFT", "DRAGON", "DRESS", "DRILL",
	"DROP", "DUCK", "DWARF", "EAGLE", "EGYPT", "EMBASSY", "ENGINE", "ENGLAND",
	"EUROPE", "EYE", "FACE", "FAIR", "FALL", "FAN", "FENCE", "FIELD",
	"FIGHTER", "FIGURE", "FILE", "FILM", "FIRE", "FISH", "FLUTE", "FLY",
	"FOOT", "FORCE", "FOREST", "FORK", "FRANCE", "GAME", "GAS", "GENIUS",
	"GERMANY", "GHOST", "GIANT", "GLASS", "GLOVE", "GOLD", "GRACE", "GRASS",
	"GREECE", "GREEN", "GROUND", "HAM", "HAND", "HAWK", "HEAD", "HEART",
	"HELICOPTER", "HIMALAYAS", "HOLE", "HOLLYWOOD", "HONEY", "HOOD", "HOOK", "HORN",
	"HORSE", "HOSPITAL", "HOTEL", "ICE", "INDIA", "IRON", "IVORY", "JACK",
	"JAM", "JET", "JUPITER", "KANGAROO", "KETCHUP", "KEY", "KID", "KING",
	"KIWI", "KNIFE", "KNIGHT", "LAB", "LAP", "LASER", "LAWYER", "LEAD",
	"LEMON", "LEPRECHAUN", "LIFE", "LIGHT", "LIMOUSINE", "LINE", "LINK", "LION",
	"LOCH", "LOCK", "LOG", "LONDON", "LUCK", "MAIL", "MAMMOTH", "MAPLE",
	"MARBLE", "MARCH", "MASS", "MATCH", "MERCURY", "MEXICO", "MICROSCOPE", "MILLIONAIRE",
	"MINE", "MINT", "MISSILE", "MODEL", "MOLE", "MOON", "MOSCOW", "MOUNT",
	"MOUSE", "MOUTH", "MUG", "NAIL", "NEEDLE", "NET", "NIGHT", "NINJA",
	"NOTE", "NOVEL", "NURSE", "NUT", "OCTOPUS", "OIL", "OLIVE", "OLYMPUS",
	"OPERA", "ORANGE", "ORGAN", "PALM", "PAN", "PANTS", "PAPER", "PARACHUTE",
	"PARK", "PART", "PASS", "PASTE", "PENGUIN", "PHOENIX", "PIANO", "PIE",
	"PILOT", "PIN", "PIPE", "PIRATE", "PISTOL", "PIT", "PITCH", "PLANE",
	"PLASTIC", "PLATE", "PLATYPUS", "PLAY", "PLOT", "POINT", "POISON", "POLE",
	"POLICE", "POOL", "PORT", "POST", "POUND", "PRESS", "PRINCESS", "PUMPKIN",
	"PUPIL", "PYRAMID", "QUEEN", "RABBIT", "RACKET", "RAY", "REVOLUTION", "RING",
	"ROBIN", "ROBOT", "ROCK", "ROME", "ROOT", "ROSE", "ROULETTE", "ROUND",
	"ROW", "RULER", "SATELLITE", "SATURN", "SCALE", "SCHOOL", "SCIENTIST", "SCORPION",
	"SCREEN", "SCUBA", "SEAL", "SERVER", "SHADOW", "SHAKESPEARE", "SHARK", "SHIP",
	"SHOE", "SHOP", "SHOT", "SINK", "SKYSCRAPER", "SLIP", "SLUG", "SMUGGLER",
	"SNOW", "SNOWMAN", "SOCK", "SOLDIER", "SOUL", "SOUND", "SPACE", "SPELL",
	"SPIDER", "SPIKE", "SPINE", "SPOT", "SPRING", "SPY", "SQUARE", "STADIUM",
	"STAFF", "STAR", "STATE", "STICK", "STOCK", "STRAW", "STREAM", "STRIKE",
	"STRING", "SUB", "SUIT", "SUPERHERO", "SWING", "SWITCH", "TABLE", "TABLET",
	"TAG", "TAIL", "TAP", "TEACHER", "TELESCOPE", "TEMPLE", "THIEF", "THUMB",
	"TICK", "TIE", "TIME", "TOKYO", "TOOTH", "TORCH", "TOWER", "TRACK",
	"TRAIN", "TRIANGLE", "TRIP", "TRUNK", "TUBE", "TURKEY", "UNDERTAKER", "UNICORN",
	"VACUUM", "VAN", "VET", "WAKE", "WALL", "WAR", "WASHER", "WASHINGTON",
	"WATCH", "WATER", "WAVE", "WEB", "WELL", "WHALE", "WHIP", "WIND",
	"WITCH", "WORM", "YARD",
}

// kahoot is the lighter party list: pop culture, food and school words.
var kahoot = []string{
	"AVOCADO", "BACKPACK", "BALLOON", "BANANA", "BASKETBALL", "BATMAN", "BEATBOX", "BICYCLE",
	"BIRTHDAY", "BLENDER", "BROCCOLI", "BUBBLE", "BURGER", "BUTTERFLY", "CACTUS", "CAMERA",
	"CAMPFIRE", "CANDY", "CARTOON", "CASTLE", "CHAMPION", "CHEESE", "COCONUT", "COMPUTER",
	"COOKIE", "CROCODILE", "CUPCAKE", "DETECTIVE", "DOLPHIN", "DONUT", "DRUM", "EMOJI",
	"ESCALATOR", "FIREWORK", "FLAMINGO", "FOOTBALL", "FOSSIL", "GALAXY", "GARDEN", "GIRAFFE",
	"GLITTER", "GUITAR", "HAMSTER", "HEADPHONES", "HOMEWORK", "HOTDOG", "ICEBERG", "IGLOO",
	"JELLYFISH", "JUNGLE", "KARAOKE", "KEYBOARD", "LADDER", "LIBRARY", "LIGHTHOUSE", "LLAMA",
	"LOLLIPOP", "MAGNET", "MERMAID", "MICROPHONE", "MONKEY", "MUSEUM", "MUSHROOM", "NOODLE",
	"ORCHESTRA", "PANCAKE", "PANDA", "PARROT", "PASSPORT", "PENCIL", "PICNIC", "PIZZA",
	"PLAYGROUND", "POPCORN", "PUZZLE", "QUIZ", "RAINBOW", "REMOTE", "ROCKET", "SANDWICH",
	"SCARECROW", "SKATEBOARD", "SLOTH", "SMARTPHONE", "SNACK", "SPAGHETTI", "STICKER", "SUNFLOWER",
	"SUSHI", "TACO", "TEDDY", "TORNADO", "TRAMPOLINE", "TREASURE", "TROPHY", "TURTLE",
	"UMBRELLA", "VOLCANO", "WAFFLE", "WIZARD", "YOGURT", "ZEBRA", "ZOMBIE", "ZOO",
}
