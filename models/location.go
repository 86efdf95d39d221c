package models

// Currencies accepted for listing prices
var Currencies = []string{"UYU", "USD"}

// Departamentos lists Uruguay's departments in display order
var Departamentos = []string{
	"Artigas",
	"Canelones",
	"Cerro Largo",
	"Colonia",
	"Durazno",
	"Flores",
	"Florida",
	"Lavalleja",
	"Maldonado",
	"Montevideo",
	"Paysandú",
	"Río Negro",
	"Rivera",
	"Rocha",
	"Salto",
	"San José",
	"Soriano",
	"Tacuarembó",
	"Treinta y Tres",
}

// Ciudades maps each department to the cities a listing may name
var Ciudades = map[string][]string{
	"Artigas": {"Artigas", "Bella Unión", "Tomás Gomensoro", "Baltasar Brum"},
	"Canelones": {
		"Canelones", "Ciudad de la Costa", "Las Piedras", "Pando", "La Paz",
		"Santa Lucía", "Progreso", "Sauce", "Toledo", "Atlántida", "San Ramón",
	},
	"Cerro Largo": {"Melo", "Río Branco", "Fraile Muerto", "Isidoro Noblía"},
	"Colonia": {
		"Colonia del Sacramento", "Carmelo", "Juan Lacaze", "Nueva Helvecia",
		"Rosario", "Nueva Palmira", "Tarariras",
	},
	"Durazno":   {"Durazno", "Sarandí del Yí", "Carmen", "La Paloma"},
	"Flores":    {"Trinidad", "Ismael Cortinas"},
	"Florida":   {"Florida", "Sarandí Grande", "Casupá", "Fray Marcos"},
	"Lavalleja": {"Minas", "José Pedro Varela", "Solís de Mataojo", "Mariscala"},
	"Maldonado": {
		"Maldonado", "Punta del Este", "San Carlos", "Pan de Azúcar",
		"Piriápolis", "Aiguá",
	},
	"Montevideo": {
		"Centro", "Ciudad Vieja", "Cordón", "Pocitos", "Punta Carretas",
		"Carrasco", "Malvín", "Buceo", "Parque Rodó", "Prado", "La Blanqueada",
		"Tres Cruces", "Palermo", "Barrio Sur", "Aguada", "La Comercial",
		"Villa Española", "Unión", "Maroñas", "Cerrito",
	},
	"Paysandú":       {"Paysandú", "Guichón", "Quebracho", "Tambores"},
	"Río Negro":      {"Fray Bentos", "Young", "Nuevo Berlín", "San Javier"},
	"Rivera":         {"Rivera", "Tranqueras", "Vichadero", "Minas de Corrales"},
	"Rocha":          {"Rocha", "Chuy", "Castillos", "Lascano", "La Paloma", "La Pedrera"},
	"Salto":          {"Salto", "Constitución", "Belén", "San Antonio"},
	"San José":       {"San José de Mayo", "Ciudad del Plata", "Libertad", "Ecilda Paullier"},
	"Soriano":        {"Mercedes", "Dolores", "Cardona", "José Enrique Rodó"},
	"Tacuarembó":     {"Tacuarembó", "Paso de los Toros", "San Gregorio de Polanco"},
	"Treinta y Tres": {"Treinta y Tres", "Vergara", "Santa Clara de Olimar"},
}

// IsDepartamento reports whether name is a known department
func IsDepartamento(name string) bool {
	_, ok := Ciudades[name]
	return ok
}

// IsCiudadOf reports whether ciudad belongs to departamento
func IsCiudadOf(departamento, ciudad string) bool {
	for _, c := range Ciudades[departamento] {
		if c == ciudad {
			return true
		}
	}
	return false
}

// IsCurrency reports whether code is an accepted currency
func IsCurrency(code string) bool {
	for _, c := range Currencies {
		if c == code {
			return true
		}
	}
	return false
}
