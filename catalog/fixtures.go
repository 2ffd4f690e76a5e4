package catalog

import "github.com/exfatt/films-server/database/model"

// Fixtures returns the seed movies used to pre-populate an empty database on
// first start. IDs and votes are assigned by the database on insert.
func Fixtures() []model.Movie {
	return []model.Movie{
		{
			Title:       "Темный рыцарь",
			Year:        2008,
			Genre:       []string{"Боевик", "Драма", "Криминал"},
			Rating:      9.0,
			Description: "Бэтмен поднимает ставки в войне с криминалом. С помощью лейтенанта Джима Гордона и прокурора Харви Дента он намерен очистить улицы Готэма от преступности.",
			ImageURL:    "https://images.unsplash.com/photo-1509347528160-9a9e33742cdb?w=500",
		},
		{
			Title:       "Начало",
			Year:        2010,
			Genre:       []string{"Фантастика", "Триллер"},
			Rating:      8.8,
			Description: "Кобб — талантливый вор, лучший из лучших в опасном искусстве извлечения: он крадет ценные секреты из глубин подсознания во время сна.",
			ImageURL:    "https://images.unsplash.com/photo-1440404653325-ab127d49abc1?w=500",
		},
		{
			Title:       "Матрица",
			Year:        1999,
			Genre:       []string{"Фантастика", "Боевик"},
			Rating:      8.7,
			Description: "Жизнь Томаса Андерсона разделена на две части: днём он — самый обычный офисный работник, получающий нагоняи от начальства, а ночью превращается в хакера по имени Нео.",
			ImageURL:    "https://images.unsplash.com/photo-1518676590629-3dcbd9c5a5c9?w=500",
		},
		{
			Title:       "Интерстеллар",
			Year:        2014,
			Genre:       []string{"Фантастика", "Драма"},
			Rating:      8.6,
			Description: "Когда засуха приводит человечество к продовольственному кризису, коллектив исследователей и учёных отправляется сквозь червоточину в путешествие, чтобы превзойти прежние ограничения для космических путешествий человека.",
			ImageURL:    "https://images.unsplash.com/photo-1446776811953-b23d57bd21aa?w=500",
		},
		{
			Title:       "Побег из Шоушенка",
			Year:        1994,
			Genre:       []string{"Драма"},
			Rating:      9.3,
			Description: "Успешный банкир Энди Дюфрейн обвинён в убийстве собственной жены и её любовника. Оказавшись в тюрьме под названием Шоушенк, он сталкивается с жестокостью и беззаконием.",
			ImageURL:    "https://images.unsplash.com/photo-1524985069026-dd778a71c7b4?w=500",
		},
		{
			Title:       "Форрест Гамп",
			Year:        1994,
			Genre:       []string{"Драма", "Мелодрама"},
			Rating:      8.8,
			Description: "От лица главного героя Форреста Гампа, слабоумного безобидного человека с благородным и открытым сердцем, рассказывается история его необыкновенной жизни.",
			ImageURL:    "https://images.unsplash.com/photo-1485846234645-a62644f84728?w=500",
		},
	}
}
