package ingest

import "github.com/hunterwarburton/porsa/internal/core"

// SampleCatalog returns the built-in demo catalog, used for local runs when
// no dataset directory is given. Prices are in toman.
func SampleCatalog() []core.Product {
	return []core.Product{
		{
			ID:          "sample-galaxy-s21",
			Name:        "گوشی سامسونگ گلکسی S21",
			Brand:       "سامسونگ",
			Category:    "گوشی موبایل",
			Price:       15000000,
			Currency:    "تومان",
			InStock:     true,
			Description: "گوشی هوشمند سامسونگ گلکسی S21 با صفحه نمایش ۶.۲ اینچی، دوربین سه‌گانه ۶۴ مگاپیکسلی و باتری ۴۰۰۰ میلی‌آمپری.",
			Features: map[string]interface{}{
				"ram":     "8GB",
				"storage": "128GB",
				"camera":  "64MP",
				"screen":  "6.2 inch",
			},
		},
		{
			ID:          "sample-galaxy-a54",
			Name:        "گوشی سامسونگ گلکسی A54",
			Brand:       "سامسونگ",
			Category:    "گوشی موبایل",
			Price:       9800000,
			Currency:    "تومان",
			InStock:     true,
			Description: "گوشی میان‌رده سامسونگ گلکسی A54 با دوربین ۵۰ مگاپیکسلی، باتری ۵۰۰۰ میلی‌آمپری و مقاومت در برابر آب.",
			Features: map[string]interface{}{
				"ram":     "8GB",
				"storage": "256GB",
				"camera":  "50MP",
			},
		},
		{
			ID:          "sample-iphone-13",
			Name:        "گوشی اپل آیفون 13",
			Brand:       "اپل",
			Category:    "گوشی موبایل",
			Price:       42000000,
			Currency:    "تومان",
			InStock:     true,
			Description: "آیفون 13 اپل با تراشه A15، دوربین دوگانه ۱۲ مگاپیکسلی و صفحه نمایش سوپر رتینا ۶.۱ اینچی.",
			Features: map[string]interface{}{
				"ram":     "4GB",
				"storage": "128GB",
				"camera":  "12MP",
			},
		},
		{
			ID:          "sample-redmi-note-12",
			Name:        "گوشی شیائومی ردمی نوت 12",
			Brand:       "شیائومی",
			Category:    "گوشی موبایل",
			Price:       8500000,
			Currency:    "تومان",
			InStock:     false,
			Description: "ردمی نوت 12 شیائومی با صفحه نمایش آمولد ۱۲۰ هرتزی، دوربین ۵۰ مگاپیکسلی و شارژ سریع ۳۳ واتی.",
			Features: map[string]interface{}{
				"ram":     "6GB",
				"storage": "128GB",
				"camera":  "50MP",
			},
		},
		{
			ID:          "sample-wh1000xm4",
			Name:        "هدفون بی‌سیم سونی WH-1000XM4",
			Brand:       "سونی",
			Category:    "هدفون",
			Price:       14500000,
			Currency:    "تومان",
			InStock:     true,
			Description: "هدفون بی‌سیم سونی با حذف نویز فعال، ۳۰ ساعت شارژدهی و اتصال همزمان به دو دستگاه.",
			Features: map[string]interface{}{
				"battery":          "30h",
				"noise_cancelling": true,
			},
		},
		{
			ID:          "sample-airpods-pro-2",
			Name:        "ایرپاد پرو 2 اپل",
			Brand:       "اپل",
			Category:    "هدفون",
			Price:       13200000,
			Currency:    "تومان",
			InStock:     true,
			Description: "ایرپاد پرو نسل دوم اپل با حذف نویز فعال، حالت شفاف و محفظه شارژ مگ‌سیف.",
			Features: map[string]interface{}{
				"battery":          "6h",
				"noise_cancelling": true,
			},
		},
		{
			ID:          "sample-vivobook-15",
			Name:        "لپتاپ ایسوس VivoBook 15",
			Brand:       "ایسوس",
			Category:    "لپتاپ",
			Price:       32000000,
			Currency:    "تومان",
			InStock:     true,
			Description: "لپتاپ ایسوس ویوبوک ۱۵ با پردازنده Core i5، رم ۱۶ گیگابایت و حافظه SSD پانصد و دوازده گیگابایتی.",
			Features: map[string]interface{}{
				"cpu":     "Core i5",
				"ram":     "16GB",
				"storage": "512GB SSD",
			},
		},
		{
			ID:          "sample-galaxy-tab-s9",
			Name:        "تبلت سامسونگ گلکسی Tab S9",
			Brand:       "سامسونگ",
			Category:    "تبلت",
			Price:       38500000,
			Currency:    "تومان",
			InStock:     false,
			Description: "تبلت پرچمدار سامسونگ با صفحه نمایش ۱۱ اینچی، قلم S Pen و بدنه مقاوم در برابر آب.",
			Features: map[string]interface{}{
				"ram":     "8GB",
				"storage": "128GB",
				"screen":  "11 inch",
			},
		},
		{
			ID:          "sample-mi-band-8",
			Name:        "دستبند هوشمند شیائومی Mi Band 8",
			Brand:       "شیائومی",
			Category:    "ساعت هوشمند",
			Price:       2100000,
			Currency:    "تومان",
			InStock:     true,
			Description: "دستبند سلامتی شیائومی با صفحه نمایش آمولد، پایش ضربان قلب و شانزده روز شارژدهی.",
			Features: map[string]interface{}{
				"battery": "16d",
				"screen":  "AMOLED",
			},
		},
		{
			ID:          "sample-anker-a2637",
			Name:        "شارژر دیواری انکر 65 وات",
			Brand:       "انکر",
			Category:    "لوازم جانبی",
			Price:       1850000,
			Currency:    "تومان",
			InStock:     true,
			Description: "شارژر دیواری گن انکر با توان ۶۵ وات، دو درگاه USB-C و یک درگاه USB-A برای شارژ همزمان سه دستگاه.",
			Features: map[string]interface{}{
				"power": "65W",
				"ports": 3,
			},
		},
	}
}
