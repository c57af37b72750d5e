package match

// demoRecords is the fixed dataset served while the feed is unreachable.
var demoRecords = []Record{
	{ID: "1", League: "Premier League", Kickoff: "21:00", Minute: "65", Home: "Man Utd", Away: "Newcastle", Score: "0-0", HomeOdds: "1.90", AwayOdds: "3.40", OpenHome: "1.35", OpenAway: "6.40"},
	{ID: "2", League: "Ligue 1", Kickoff: "19:00", Minute: "72", Home: "PSG", Away: "Lorient", Score: "1-0", HomeOdds: "1.12", AwayOdds: "15.00", OpenHome: "1.15", OpenAway: "12.00"},
	{ID: "3", League: "Serie A", Kickoff: "20:45", Minute: "58", Home: "Juventus", Away: "Empoli", Score: "0-0", HomeOdds: "1.95", AwayOdds: "5.00", OpenHome: "1.25", OpenAway: "9.00"},
	{ID: "4", League: "Liga", Kickoff: "21:00", Minute: "15", Home: "Real Madrid", Away: "Getafe", Score: "0-0", HomeOdds: "1.22", AwayOdds: "12.00", OpenHome: "1.20", OpenAway: "13.00"},
	{ID: "5", League: "Bundesliga", Kickoff: "15:30", Minute: FeedFinished, Home: "Bayern", Away: "Dortmund", Score: "2-1", HomeOdds: "1.55", AwayOdds: "5.00", OpenHome: "1.55", OpenAway: "5.00"},
	{ID: "6", League: "Premier League", Kickoff: "17:30", Minute: FeedFinished, Home: "Chelsea", Away: "Brighton", Score: "1-1", HomeOdds: "1.40", AwayOdds: "6.50", OpenHome: "1.40", OpenAway: "6.50"},
	{ID: "7", League: "Ligue 1", Kickoff: "21:00", Minute: FeedFinished, Home: "Lyon", Away: "Marseille", Score: "2-0", HomeOdds: "2.10", AwayOdds: "3.20", OpenHome: "2.10", OpenAway: "3.20"},
}

// DemoDataset returns a fresh copy of the demonstration pull.
func DemoDataset() []Snapshot {
	return NormalizeAll(demoRecords)
}
