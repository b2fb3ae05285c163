package factsheet

const officialSource = "Official EAC Factsheet"

var defaultFacts = []Fact{
	{
		Keyword: "headquarters",
		Answer:  "The Headquarters of the East African Community (EAC) is located in Arusha, United Republic of Tanzania.",
		Source:  officialSource,
	},
	{
		Keyword: "members",
		Answer:  "The EAC Partner States are: Republic of Burundi, Democratic Republic of the Congo, Republic of Kenya, Republic of Rwanda, Federal Republic of Somalia, Republic of South Sudan, United Republic of Tanzania, and Republic of Uganda.",
		Source:  officialSource,
	},
	{
		Keyword: "founded",
		Answer:  "The EAC was originally founded in 1967, collapsed in 1977, and was officially revived on 7 July 2000.",
		Source:  officialSource,
	},
	{
		Keyword: "motto",
		Answer:  "The motto of the EAC is 'One People, One Destiny'.",
		Source:  officialSource,
	},
	{
		Keyword: "secretary general",
		Answer:  "The Secretary General is the principal executive officer of the Community.",
		Source:  officialSource,
	},
}
