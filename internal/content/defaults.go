package content

import (
	"strconv"

	"github.com/example/retype/pkg/models"
)

// DefaultSetID identifies the built-in set served when nothing can be fetched
const DefaultSetID = "default-content"

// DefaultSet returns a fresh copy of the built-in content set
func DefaultSet() *models.ContentSet {
	texts := []string{
		`Kai žmonės iškovoja laisvę, dažnai sakoma: "tarsi galėčiau pagaliau įkvėpti". Kvėpavimas tampa ne tik fiziologiniu veiksmu, bet simboline būsena – gyventi be baimės.`,
		`Tačiau ne visi gali laisvai kvėpuoti – pažodžiui ir perkeltine prasme. Miestai pilni taršos. Šalys – be žodžio laisvės. Kvėpavimas ir teisė laisvai reikšti mintis – abu gali būti atimti.`,
		`Laisvė yra kaip oras – jos nepastebi, kol jos netenki. Todėl tik brandi visuomenė saugo ne tik fizinę oro švarą, bet ir idėjų erdvę, kurioje gali laisvai kvėpuoti kiekvienas.`,
		`Per pasaulį nuvilnijusios revoliucijos nešė plakatais žodžius, bet jų esmė slypėjo ore – ore, kuris alsavo pasipriešinimu. Kvėpavimas buvo lyg sinchronizuota malda – viena tauta, vienas ritmas.`,
		`Tačiau laisvė dažnai painiojama su chaosu. Kai kas, gavęs oro, pasirenka jį naudoti kitiems atimti. Kvėpuoti laisvai reiškia ne daryti bet ką, o leisti kitiems kvėpuoti šalia tavęs.`,
		`Tik tada, kai suvoki, jog tavo kvėpavimas susijęs su šalia esančio žmogaus oru – tiek tiesiogiai, tiek simboliškai – tampi tikru laisvės kūrėju.`,
		`Oras – nematomas, bet gyvybiškai svarbus. Kaip ir laisvė. Abu reikia saugoti. Abu reikia gerbti. Ir abu galima prarasti, jei nustosime jais rūpintis.`,
	}

	set := &models.ContentSet{
		ID:       DefaultSetID,
		Title:    "Laisvės vėjas:",
		Subtitle: "politinė ir socialinė oro reikšmė",
	}
	for i, text := range texts {
		set.Paragraphs = append(set.Paragraphs, models.Paragraph{
			ID:           "p" + strconv.Itoa(i+1),
			ContentSetID: DefaultSetID,
			OrderIndex:   i + 1,
			Content:      text,
		})
	}
	set.Wisdom = []models.WisdomSection{{
		ID:           "w1",
		ContentSetID: DefaultSetID,
		Type:         "quote",
		Title:        "Išmintis",
		Content:      `Pirmas politinis šūkis, kuriame buvo paminėtas kvėpavimas, gimė Prancūzijos revoliucijos metu: "La liberté ou l'asphyxie" ("Laisvė arba uždusimas").`,
	}}
	return set
}
