package questionbank

// Built-in seed data. The bank ships with a usable US and UK student-visa
// question set so the service works before any operator-provided data is
// loaded; additional destinations start empty.

var seedDestinations = []Destination{
	{"US", "United States"},
	{"UK", "United Kingdom"},
	{"CA", "Canada"},
	{"AU", "Australia"},
	{"DE", "Germany"},
	{"FR", "France"},
	{"NL", "Netherlands"},
	{"IE", "Ireland"},
	{"IT", "Italy"},
	{"ES", "Spain"},
	{"CH", "Switzerland"},
	{"SE", "Sweden"},
	{"FI", "Finland"},
	{"NO", "Norway"},
	{"DK", "Denmark"},
	{"JP", "Japan"},
	{"KR", "South Korea"},
	{"SG", "Singapore"},
	{"NZ", "New Zealand"},
	{"AE", "United Arab Emirates"},
}

var seedQuestions = []Question{
	// background
	{1, "US", "background", 1, "Good morning. Please introduce yourself and tell me why you are here today.", "Apna parichay dijiye aur bataiye aap yahan kyun aaye hain."},
	{2, "US", "background", 1, "Where are you from, and what do you currently do?", "Aap kahan se hain aur abhi kya karte hain?"},
	{3, "US", "background", 2, "Have you travelled abroad before? Tell me about it.", "Kya aap pehle videsh gaye hain? Uske baare mein bataiye."},
	// academics
	{4, "US", "academics", 1, "Tell me about your academic background.", "Apni padhai ke baare mein bataiye."},
	{5, "US", "academics", 2, "What was your percentage or GPA in your last qualification?", "Aapki pichli degree mein kitne marks ya GPA aaye the?"},
	{6, "US", "academics", 2, "Have you taken any English proficiency tests like IELTS or TOEFL? What was your score?", "Kya aapne IELTS ya TOEFL diya hai? Kitne marks aaye the?"},
	{7, "US", "academics", 3, "There is a gap in your academic record. What were you doing during that time?", "Aapki padhai mein gap hai. Us samay aap kya kar rahe the?"},
	// course choice
	{8, "US", "course_choice", 1, "What program have you been accepted into, and at which university?", "Aapko kaun sa course aur kaun si university mili hai?"},
	{9, "US", "course_choice", 2, "Why did you choose this particular university over others?", "Aapne yahi university kyun chuni?"},
	{10, "US", "course_choice", 2, "How does this course relate to your previous studies?", "Yeh course aapki pichli padhai se kaise juda hai?"},
	{11, "US", "course_choice", 3, "Why study this program in the United States instead of in India?", "Yeh course India ke bajaye US mein kyun karna chahte hain?"},
	// finance
	{12, "US", "finance", 1, "How will you fund your education and living expenses?", "Aap apni padhai aur rehne ka kharcha kaise uthayenge?"},
	{13, "US", "finance", 2, "Do you have a scholarship or an education loan?", "Kya aapko scholarship mili hai ya education loan liya hai?"},
	{14, "US", "finance", 2, "What is your sponsor's annual income?", "Aapke sponsor ki saalana aamdani kitni hai?"},
	{15, "US", "finance", 3, "Your tuition is substantial. Walk me through exactly how each year will be paid for.", "Aapki fees kaafi zyada hai. Har saal ka kharcha kaise diya jayega, vistar se bataiye."},
	// intent
	{16, "US", "intent", 1, "What are your plans after completing your studies?", "Padhai poori hone ke baad aapka kya plan hai?"},
	{17, "US", "intent", 2, "Will you return to India after your degree? What will you do there?", "Kya aap degree ke baad India wapas aayenge? Wahan kya karenge?"},
	{18, "US", "intent", 3, "What ties do you have to your home country that will bring you back?", "Aapke apne desh se kaun se rishte hain jo aapko wapas layenge?"},
	// country specific
	{19, "US", "country_specific", 1, "Do you know anyone currently in the United States?", "Kya aap kisi ko jaante hain jo abhi US mein hai?"},
	{20, "US", "country_specific", 2, "What do you know about the city where your university is located?", "Aapki university jis sheher mein hai uske baare mein kya jaante hain?"},
	{21, "US", "country_specific", 3, "Are you aware of the work restrictions on a student visa in the United States?", "Kya aap US student visa ki kaam karne ki pabandiyon ke baare mein jaante hain?"},
	// ties
	{22, "US", "ties", 2, "Tell me about your family. Who depends on you at home?", "Apne parivaar ke baare mein bataiye. Ghar par aap par kaun nirbhar hai?"},

	// UK set
	{23, "UK", "background", 1, "Good morning. Please introduce yourself.", "Apna parichay dijiye."},
	{24, "UK", "academics", 2, "Tell me about your most recent qualification and your grades.", "Apni sabse haal ki degree aur marks ke baare mein bataiye."},
	{25, "UK", "course_choice", 2, "Why did you choose to study in the United Kingdom?", "Aapne UK mein padhna kyun chuna?"},
	{26, "UK", "finance", 2, "How will you meet the financial requirements for your visa?", "Aap visa ki aarthik shartein kaise poori karenge?"},
	{27, "UK", "intent", 2, "What are your plans once your course ends?", "Course khatam hone ke baad aapka kya plan hai?"},
	{28, "UK", "country_specific", 2, "What do you know about your university's location in the UK?", "UK mein aapki university ke sheher ke baare mein kya jaante hain?"},
}

var seedFollowups = []Followup{
	{1, 8, "How did you hear about this university?"},
	{2, 9, "Which other universities did you apply to, and what were the results?"},
	{3, 12, "What is your family's annual income?"},
	{4, 13, "What are the terms of your education loan?"},
	{5, 16, "Do you have any family in the destination country?"},
	{6, 17, "What job opportunities exist for you back in India?"},
	{7, 4, "Have you done any internships or projects in this field?"},
	{8, 6, "Which section of the test did you find most challenging?"},
}

var seedRiskFactors = []RiskFactor{
	{1, "US", "India", "High volume of student applications; funding evidence is examined closely.", 2},
	{2, "US", "India", "Prior visa refusals in the family attract additional review.", 3},
	{3, "UK", "India", "Maintenance funds must be held for the full qualifying period.", 2},
	{4, "CA", "India", "Study-permit approval rates vary sharply by program.", 2},
	{5, "AU", "India", "Genuine Temporary Entrant assessment applies.", 3},
}

// SeedQuestions exposes the built-in question set, used by the in-memory
// store and by tests.
func SeedQuestions() []Question {
	out := make([]Question, len(seedQuestions))
	copy(out, seedQuestions)
	return out
}
