package agent

const (
	websiteURL     = "https://ube.edu.ec/"
	sgaURL         = "https://sga.ube.edu.ec/"
	admissionsMail = "admisiones@ube.edu.ec"
	admissionsTel  = "098 449 0567"
	whatsappURL    = "https://api.whatsapp.com/send/?phone=593989758382&text=Me+gustar%C3%ADa+saber+informaci%C3%B3n+sobre+las+carreras"
)

const generalInfoText = `### ¿Quiénes somos?
La Universidad Bolivariana del Ecuador (UBE), la Universidad para todos, es una universidad particular autofinanciada, sin fines de lucro, que forma parte del Sistema de Educación Superior del Ecuador. Fue creada por Ley de la Asamblea Nacional el 4 de mayo de 2021.

### Misión
Formar profesionales y académicos competentes y humanistas, a través de la docencia, la investigación y la vinculación con la sociedad, generando y difundiendo conocimiento científico y tecnológico con inclusión, equidad e interculturalidad.

### Visión
Ser la universidad humanista, científico-tecnológica y de los saberes, internacionalizada y solidaria, con alta identidad latinoamericana por su responsabilidad social.

### ¿Por qué elegir la UBE?
- Programas en modalidad presencial, híbrida y en línea.
- Educación inter y transdisciplinar.
- Enfoque en democratizar el acceso a la educación superior.`

const benefitsText = `## Beneficios académicos
- Wi-Fi en todo el campus y aulas inteligentes.
- Laboratorios de simulación clínica, informática, idiomas y robótica.
- Tutorías personalizadas y convenios para prácticas preprofesionales.

## Ecosistema digital
- Sistema de Gestión Académica (SGA) para notas, tareas, pagos y asistencia.
- Campus virtual con clases en vivo y grabaciones.
- Correo institucional y almacenamiento en la nube.

## Modalidades de estudio
- Presencial, híbrida y en línea, con horarios flexibles para quienes trabajan.

## Bienestar y vida estudiantil
- Orientación psicológica y consejería estudiantil.
- Programas de becas y ayudas económicas.
- Clubes, actividades culturales y deportivas.`

const scholarshipsText = `La UBE ofrece **becas** y **ayudas económicas**.

**Requisitos para becas**
- Estar matriculado en el período académico.
- No tener sanciones disciplinarias ni deudas con la institución.
- No tener otros descuentos o becas activas.
- Completar la solicitud oficial en el SGA.

**Ayudas económicas** (hasta el 20% de la colegiatura, según estudio socioeconómico)
- Dos o más familiares matriculados que dependan de la misma persona.
- Residir lejos de Guayaquil con necesidad justificada.
- Haber sido abanderado o portaestandarte.
- Casos especiales comprobables (enfermedad grave, fallecimiento de un familiar, despido).
- Pertenecer a una empresa con convenio con la UBE.

Los programas de posgrado no aplican, salvo estudiantes con discapacidad o de convenios interinstitucionales.`

const contactsText = `**Departamento de Admisiones UBE**
- Horario: lunes a viernes, 08:00 a 18:00.
- Correo: ` + admissionsMail + `
- Teléfono / WhatsApp: ` + admissionsTel

const outOfScopeText = `No puedo resolver preguntas fuera de los temas de la UBE. ¿Quieres información sobre nuestras carreras o el proceso de matrícula?

Si deseas más información puedes comunicarte por:
- WhatsApp: ` + whatsappURL + `
- Página oficial: ` + websiteURL

const libraryText = `**Biblioteca UBE**
- Horario presencial: lunes a viernes de 8:00 a 20:00; sábados de 9:00 a 13:00.
- Bases de datos digitales 24/7 (EBSCO, vLex, Scopus) desde la sección Biblioteca del campus virtual.
- Reserva de libros y salas de estudio desde el portal de la biblioteca, sección Catálogo.`

const requirementsText = `**Requisitos generales para matriculación**
- Copia de cédula de identidad o pasaporte.
- Certificado de votación (mayores de 18 años).
- Título de bachiller o acta de grado (apostillado si es extranjero).
- Certificado de notas del colegio.
- 2 fotografías tamaño carnet.
- Pago de inscripción y matrícula.`

const emailResetText = `El restablecimiento de la contraseña del correo institucional se hace desde Google:
1. Ve a la página de inicio de sesión de Gmail.
2. Ingresa tu correo institucional completo (ejemplo@ube.edu.ec).
3. Haz clic en "Olvidé mi contraseña".
4. Sigue las opciones de recuperación que configuraste (teléfono o correo alternativo).

Si no puedes restablecerla, contacta a la Dirección de Tecnologías de la Información (DTI) para un reinicio manual.`

const emailUsesText = `Usa este correo para toda la comunicación académica y administrativa:
- Google Workspace (Drive, Meet, Classroom).
- Notificaciones oficiales y clases virtuales.
- Bases de datos y servicios de biblioteca.`

const catalogDownText = "El catálogo de carreras no está disponible en este momento. Intenta nuevamente en unos minutos o consulta " + sgaURL

const authRequiredText = "Para esta consulta necesitas iniciar sesión con tu cuenta institucional."
