package agent

func (tk *toolkit) registerPublic(r *ToolRegistry) {
	RegisterText(r, "general_info",
		"Información general de la UBE: quiénes somos, misión, visión y por qué elegir la universidad.",
		generalInfoText)
	RegisterText(r, "benefits",
		"Beneficios e instalaciones de la UBE: académicos, ecosistema digital, modalidades de estudio y bienestar estudiantil.",
		benefitsText)
	RegisterText(r, "scholarships",
		"Requisitos y condiciones para becas y ayudas económicas.",
		scholarshipsText)
	RegisterText(r, "admissions_contacts",
		"Contactos del Departamento de Admisiones: horario, correo y teléfono.",
		contactsText)
	RegisterText(r, "sga_link",
		"Enlace al Sistema de Gestión Académica (SGA).",
		"[Sistema de Gestión Académica (SGA)]("+sgaURL+")")
	RegisterText(r, "website_link",
		"Enlace a la página web oficial de la UBE.",
		"[Universidad Bolivariana del Ecuador]("+websiteURL+")")
	tk.registerChat(r)
}

func (tk *toolkit) registerFAQ(r *ToolRegistry) {
	RegisterText(r, "library_info",
		"Horario de la biblioteca, reserva de libros y acceso a bases de datos digitales.",
		libraryText)
}

func (tk *toolkit) registerChat(r *ToolRegistry) {
	RegisterText(r, "out_of_scope",
		"Responde cuando el usuario pregunta por temas ajenos a la UBE.",
		outOfScopeText)
}
