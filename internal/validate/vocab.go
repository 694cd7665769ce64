package validate

// Reference vocabularies for semantic validation of extracted cells. The
// lists cover the Colombian geography and phone numbering that shows up in
// transfer sheets and site blocks.

var colombianCities = newSet(
	"BOGOTÁ", "BOGOTA", "MEDELLÍN", "MEDELLIN", "CALI", "BARRANQUILLA",
	"CARTAGENA", "BUCARAMANGA", "CÚCUTA", "CUCUTA", "PEREIRA", "IBAGUÉ",
	"IBAGUE", "SANTA MARTA", "MANIZALES", "VILLAVICENCIO", "PASTO",
	"MONTERÍA", "MONTERIA", "NEIVA", "ARMENIA", "SINCELEJO", "POPAYÁN",
	"POPAYAN", "VALLEDUPAR", "TUNJA", "FLORENCIA", "QUIBDÓ", "QUIBDO",
	"RIOHACHA", "YOPAL", "MOCOA", "LETICIA", "INÍRIDA", "INIRIDA",
	"MITÚ", "MITU", "PUERTO CARREÑO", "SAN JOSÉ DEL GUAVIARE", "ARAUCA",
	"BAHIA SOLANO", "BARRANCABERMEJA", "BUENAVENTURA", "PALMIRA",
	"CARTAGO", "TULUA", "TULUÁ", "BUGA", "SOGAMOSO", "DUITAMA", "GIRARDOT",
	"FUSAGASUGA", "FUSAGASUGÁ", "FACATATIVA", "FACATATIVÁ", "ZIPAQUIRA",
	"ZIPAQUIRÁ", "CHIA", "CHÍA", "SOACHA", "RIONEGRO", "ENVIGADO",
	"ITAGUI", "ITAGÜÍ", "BELLO", "TUMACO", "IPIALES", "GRANADA", "ACACIAS",
	"ACACÍAS", "PUERTO LOPEZ", "PUERTO LÓPEZ", "AGUACHICA", "OCAÑA",
	"APARTADO", "APARTADÓ", "TURBO", "CAUCASIA", "MAGANGUE", "MAGANGUÉ",
	"LORICA", "CERETE", "CERETÉ", "ESPINAL", "MELGAR", "FLANDES", "HONDA",
	"MARIQUITA", "LA DORADA", "PUERTO BERRIO", "PUERTO BERRÍO",
	"PUERTO BOYACA", "PUERTO BOYACÁ", "CIENAGA", "CIÉNAGA", "FUNDACION",
	"FUNDACIÓN", "ARACATACA", "EL BANCO", "PLATO", "COROZAL", "SAMPUES",
	"SAMPUÉS", "SAN MARCOS", "ZARZAL", "JAMUNDI", "JAMUNDÍ", "YUMBO",
	"CANDELARIA", "PRADERA", "FLORIDA", "CERRITO", "GUACARI", "GUACARÍ",
	"GINEBRA", "ROLDANILLO", "LA UNION", "LA UNIÓN", "SEVILLA",
	"CAICEDONIA", "ARGELIA", "DARIEN", "DARIÉN", "RESTREPO", "DAGUA",
	"LA CUMBRE", "CLO", "BOG", "MDE",
	"TENJO", "MOSQUERA", "SUESCA", "FUNZA", "MADRID", "ALCALÁ", "ULLOA",
	"TRUJILLO", "RIOFRÍO", "RIOFRIO", "CALIMA", "VIJES", "YOTOCO",
	"SAN PEDRO", "EL DOVIO", "ANDALUCÍA", "ANDALUCIA", "CONTRATACIÓN",
	"CONTRATACION", "POPOYAN", "BOLIVAR", "BOLÍVAR",
)

var colombianDepartments = newSet(
	"BOGOTÁ D.C", "BOGOTA D.C", "BOGOTÁ D.C.", "BOGOTA D.C.",
	"ANTIOQUIA", "ATLÁNTICO", "ATLANTICO", "BOLÍVAR", "BOLIVAR",
	"BOYACÁ", "BOYACA", "CALDAS", "CAQUETÁ", "CAQUETA", "CASANARE",
	"CAUCA", "CESAR", "CHOCÓ", "CHOCO", "CÓRDOBA", "CORDOBA",
	"CUNDINAMARCA", "GUAINÍA", "GUAINIA", "GUAVIARE", "HUILA",
	"LA GUAJIRA", "MAGDALENA", "META", "NARIÑO", "NARINO",
	"NORTE DE SANTANDER", "PUTUMAYO", "QUINDÍO", "QUINDIO",
	"RISARALDA", "SAN ANDRÉS", "SAN ANDRES", "SANTANDER", "SUCRE",
	"TOLIMA", "VALLE", "VALLE DEL CAUCA", "VAUPÉS", "VAUPES",
	"VICHADA", "AMAZONAS", "ARAUCA",
)

var mobilePrefixes = newSet(
	"300", "301", "302", "303", "304", "305",
	"310", "311", "312", "313", "314", "315", "316", "317", "318",
	"320", "321", "322", "323", "324",
	"350", "351",
	"330", "331", "332", "333",
)

var addressTokens = []string{
	"CARRERA ", "CRA ", "CRA. ", "CR ",
	"CALLE ", "CL ", "CL. ",
	"AVENIDA ", "AV ", "AV. ",
	"DIAGONAL ", "DG ", "DG. ",
	"TRANSVERSAL ", "TV ", "TV. ",
	"KM ", "KILOMETRO", "KILÓMETRO",
	"LOCAL ", "PISO ", "OFICINA ", "OF ",
	"CONSULTORIO", "TORRE ", "BLOQUE ",
	"MANZANA", "CASA ", "APARTAMENTO", "APTO",
	"EDIFICIO", "CENTRO COMERCIAL", "C.C.",
	"BARRIO ", "VEREDA ", "SECTOR ",
}

var invalidCodeWords = []string{
	"CODIGO", "CUPS", "ITEM", "DESCRIPCION", "TARIFA", "TOTAL", "SUBTOTAL",
	"DEPARTAMENTO", "MUNICIPIO", "HABILITACION", "HABIITACION", "DIRECCION",
	"TELEFONO", "EMAIL", "SEDE", "NOMBRE", "NUMERO", "ESPECIALIDAD",
	"MANUAL", "OBSERV", "PORCENTAJE", "HOMOLOGO", "N°", "NO.",
	"NOTA", "NOTAS", "ACLARATORIA", "ACLARATORIAS", "ACLARACION", "ACLARACIONES",
	"INCLUYE", "NO INCLUYE", "EXCLUYE",
	"USO DE EQUIPO", "DERECHO DE SALA", "DERECHO SALA",
	"VER NOTA", "VER NOTAS", "SEGUN NOTA",
	"APLICA", "NO APLICA", "SEGÚN", "SEGUN",
	"CONSULTAR", "REVISAR", "PENDIENTE",
	"VALOR", "PRECIO", "COSTO",
	"CONTRATO", "ACTA", "OTROSI", "OTROSÍ",
	"VIGENTE", "VIGENCIA",
	"TRASLADO", "ORIGEN", "DESTINO",
	"TARIFAS PROPIAS", "TARIFA PROPIA",
}

var specialEmptyValues = newSet(
	"N.A", "NA", "N/A", "N.A.", "-", "--", "---",
	"NINGUNO", "NINGUNA", "NULL", "NONE", "",
)

// SiteHeaderWords mark a site-block header row when three or more appear.
var SiteHeaderWords = []string{
	"DEPARTAMENTO", "MUNICIPIO", "CODIGO DE HABILITACION", "CÓDIGO DE HABILITACIÓN",
	"CODIGO DE HABIITACION", "CÓDIGO DE HABIITACIÓN",
	"CODIGO HABILITACION", "CÓDIGO HABILITACIÓN",
	"NUMERO DE SEDE", "NÚMERO DE SEDE", "N° SEDE", "NO. SEDE",
	"NOMBRE DE LA SEDE", "DIRECCION", "DIRECCIÓN", "TELEFONO", "TELÉFONO",
	"EMAIL", "CORREO", "NOMBRE SEDE",
}

var transferHeaderWords = []string{
	"ORIGEN",
	"DESTINO",
	"MUNICIPIO ORIGEN",
	"MUNICIPIO DESTINO",
	"DEPARTAMENTO DESTINO",
	"TIPO DE TRASLADO",
}

func newSet(values ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}
